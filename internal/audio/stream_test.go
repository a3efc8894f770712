package audio

import (
	"testing"
	"time"
)

func makeStream(t *testing.T, rate, n int) *Stream {
	t.Helper()
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = float64(i)
	}
	s, err := NewStream("test", rate, samples)
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}
	return s
}

func TestStreamDuration(t *testing.T) {
	s := makeStream(t, 100, 250)
	if got, want := s.Duration(), 2500*time.Millisecond; got != want {
		t.Errorf("Duration() = %v, want %v", got, want)
	}
}

func TestStreamSampleAt(t *testing.T) {
	s := makeStream(t, 100, 200)

	cases := []struct {
		t    time.Duration
		want int
	}{
		{0, 0},
		{time.Second, 100},
		{10 * time.Millisecond, 1},
		{-time.Second, 0},
		{time.Hour, 200},
	}
	for _, tc := range cases {
		if got := s.SampleAt(tc.t); got != tc.want {
			t.Errorf("SampleAt(%v) = %d, want %d", tc.t, got, tc.want)
		}
	}
}

func TestStreamReadRange(t *testing.T) {
	s := makeStream(t, 100, 200)

	view := s.ReadRange(500*time.Millisecond, time.Second)
	if len(view) != 100 {
		t.Fatalf("ReadRange returned %d samples, want 100", len(view))
	}
	if view[0] != 50 {
		t.Errorf("range starts at sample %v, want 50", view[0])
	}

	// Past the end the range truncates.
	tail := s.ReadRange(1500*time.Millisecond, time.Minute)
	if len(tail) != 50 {
		t.Errorf("truncated range has %d samples, want 50", len(tail))
	}

	// Fully outside the stream it is empty.
	if out := s.ReadRange(time.Hour, time.Second); len(out) != 0 {
		t.Errorf("out-of-bounds range has %d samples, want 0", len(out))
	}
}

func TestStreamRoundTrip(t *testing.T) {
	s := makeStream(t, 11025, 11025)
	for _, idx := range []int{0, 1, 5000, 11024} {
		if got := s.SampleAt(s.TimeAt(idx)); got != idx {
			t.Errorf("SampleAt(TimeAt(%d)) = %d", idx, got)
		}
	}
}

func TestNewStreamInvalidRate(t *testing.T) {
	if _, err := NewStream("bad", 0, nil); err == nil {
		t.Error("expected error for zero sample rate")
	}
}
