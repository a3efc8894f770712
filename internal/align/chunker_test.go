package align

import (
	"errors"
	"testing"
	"time"

	"cuesync/internal/audio"
)

func testStream(t *testing.T, rate int, seconds float64) *audio.Stream {
	t.Helper()
	samples := make([]float64, int(seconds*float64(rate)))
	for i := range samples {
		samples[i] = float64(i%7) * 0.1
	}
	stream, err := audio.NewStream("test", rate, samples)
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}
	return stream
}

func TestChunkerCount(t *testing.T) {
	stream := testStream(t, 100, 10)

	c, err := NewChunker(stream, 2*time.Second, 0)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}
	if c.Count() != 5 {
		t.Errorf("Count() = %d, want 5", c.Count())
	}
	if c.Step() != 2*time.Second {
		t.Errorf("Step() = %v, want 2s", c.Step())
	}
}

func TestChunkerFinalShortChunk(t *testing.T) {
	stream := testStream(t, 100, 5)

	c, err := NewChunker(stream, 2*time.Second, 0)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}
	if c.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", c.Count())
	}

	last := c.At(2)
	if last.Start != 4*time.Second {
		t.Errorf("last chunk start = %v, want 4s", last.Start)
	}
	if len(last.Samples) != 100 {
		t.Errorf("last chunk has %d samples, want 100 (unpadded)", len(last.Samples))
	}
}

func TestChunkerOverlap(t *testing.T) {
	stream := testStream(t, 100, 10)

	c, err := NewChunker(stream, 2*time.Second, 0.5)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}
	if c.Step() != time.Second {
		t.Errorf("Step() = %v, want 1s", c.Step())
	}
	if c.Count() != 10 {
		t.Errorf("Count() = %d, want 10", c.Count())
	}

	// Consecutive chunks must share half their samples.
	a, b := c.At(0), c.At(1)
	if a.Samples[100] != b.Samples[0] {
		t.Error("overlapping chunks disagree on shared samples")
	}
}

func TestChunkerRestartable(t *testing.T) {
	stream := testStream(t, 100, 6)

	c, err := NewChunker(stream, 2*time.Second, 0)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}

	first := c.At(1)
	again := c.At(1)
	if first.Start != again.Start || len(first.Samples) != len(again.Samples) {
		t.Error("re-reading a chunk changed its geometry")
	}
	for i := range first.Samples {
		if first.Samples[i] != again.Samples[i] {
			t.Fatalf("re-read sample %d differs", i)
		}
	}
}

func TestChunkerInvalidConfig(t *testing.T) {
	stream := testStream(t, 100, 5)

	if _, err := NewChunker(stream, 0, 0); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("zero duration: err = %v, want ErrInvalidConfiguration", err)
	}
	if _, err := NewChunker(stream, time.Second, 1.0); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("overlap 1.0: err = %v, want ErrInvalidConfiguration", err)
	}
	if _, err := NewChunker(stream, time.Second, -0.1); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("negative overlap: err = %v, want ErrInvalidConfiguration", err)
	}
}

func TestChunkerIndexAt(t *testing.T) {
	stream := testStream(t, 100, 10)

	c, err := NewChunker(stream, 2*time.Second, 0)
	if err != nil {
		t.Fatalf("NewChunker failed: %v", err)
	}

	cases := []struct {
		t    time.Duration
		want int
	}{
		{0, 0},
		{1900 * time.Millisecond, 0},
		{2 * time.Second, 1},
		{9 * time.Second, 4},
		{time.Hour, 4},
		{-time.Second, 0},
	}
	for _, tc := range cases {
		if got := c.IndexAt(tc.t); got != tc.want {
			t.Errorf("IndexAt(%v) = %d, want %d", tc.t, got, tc.want)
		}
	}
}
