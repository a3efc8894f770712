package align

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"cuesync/internal/audio"
)

const testRate = 800

func noiseStream(t *testing.T, id string, seed int64, seconds float64) *audio.Stream {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	stream, err := audio.NewStream(id, testRate, noise(rng, int(seconds*testRate)))
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}
	return stream
}

func subStream(t *testing.T, id string, src *audio.Stream, from, to time.Duration) *audio.Stream {
	t.Helper()
	view := src.ReadRange(from, to-from)
	samples := make([]float64, len(view))
	copy(samples, view)
	stream, err := audio.NewStream(id, testRate, samples)
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}
	return stream
}

func testConfig() Config {
	return Config{
		ChunkDuration:   2 * time.Second,
		ScoreThreshold:  0.3,
		Prominence:      0.13,
		MinPeakDistance: 8 * time.Minute,
		Workers:         2,
	}
}

func mustAlign(t *testing.T, cfg Config, ref, target *audio.Stream) (*Alignment, Stats) {
	t.Helper()
	aligner, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	al, stats, err := aligner.Align(context.Background(), ref, target)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	return al, stats
}

func TestAlignSelf(t *testing.T) {
	ref := noiseStream(t, "ref", 10, 10)

	al, stats := mustAlign(t, testConfig(), ref, ref)

	if stats.RefChunks != 5 {
		t.Errorf("ref chunks = %d, want 5", stats.RefChunks)
	}
	if got := al.Coverage(); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("self-alignment coverage = %v, want 1.0", got)
	}
	if len(al.Segments) != 1 {
		t.Fatalf("self-alignment produced %d segments %v, want 1", len(al.Segments), al.Segments)
	}
	if off := al.Segments[0].Offset(); off != 0 {
		t.Errorf("self-alignment offset = %v, want 0", off)
	}
}

func TestAlignPureShift(t *testing.T) {
	ref := noiseStream(t, "ref", 11, 8)

	// Target is the reference preceded by 3s of silence.
	lead := int(3 * testRate)
	samples := make([]float64, lead+ref.Len())
	copy(samples[lead:], ref.Samples())
	target, err := audio.NewStream("target", testRate, samples)
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}

	al, _ := mustAlign(t, testConfig(), ref, target)

	matched := al.Matched()
	if len(matched) == 0 {
		t.Fatal("no matched segments")
	}
	for _, seg := range matched {
		if got := seg.Offset(); got != 3*time.Second {
			t.Errorf("segment %v offset = %v, want 3s", seg.Ref, got)
		}
	}
	if got := al.Coverage(); got < 0.99 {
		t.Errorf("coverage = %v, want ~1.0", got)
	}
}

func TestAlignSingleCut(t *testing.T) {
	ref := noiseStream(t, "ref", 12, 10)
	// The first 4s of the reference were cut from the target.
	target := subStream(t, "target", ref, 4*time.Second, 10*time.Second)

	al, _ := mustAlign(t, testConfig(), ref, target)

	if len(al.Segments) != 2 {
		t.Fatalf("got %d segments %v, want gap + match", len(al.Segments), al.Segments)
	}
	gap, match := al.Segments[0], al.Segments[1]
	if gap.Kind != KindGap || gap.Ref.End != 4*time.Second {
		t.Errorf("gap = %+v, want 0s-4s", gap)
	}
	if match.Kind != KindMatch {
		t.Fatalf("second segment kind = %v, want match", match.Kind)
	}
	if off := match.Offset(); off != -4*time.Second {
		t.Errorf("match offset = %v, want -4s", off)
	}
	if got, want := al.Coverage(), 0.6; math.Abs(got-want) > 1e-9 {
		t.Errorf("coverage = %v, want %v", got, want)
	}
}

func TestAlignDuplicatedContent(t *testing.T) {
	ref := noiseStream(t, "ref", 13, 4)

	// Target plays the reference halves in reverse order, so the second
	// reference chunk can only point backwards in the target.
	first := ref.ReadRange(0, 2*time.Second)
	second := ref.ReadRange(2*time.Second, 2*time.Second)
	samples := make([]float64, 0, ref.Len())
	samples = append(samples, second...)
	samples = append(samples, first...)
	target, err := audio.NewStream("target", testRate, samples)
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}

	al, _ := mustAlign(t, testConfig(), ref, target)

	if len(al.Segments) != 2 {
		t.Fatalf("got %d segments %v, want 2", len(al.Segments), al.Segments)
	}
	if al.Segments[0].Kind != KindMatch || al.Segments[0].Target.Start != 2*time.Second {
		t.Errorf("first segment = %+v, want match at target 2s", al.Segments[0])
	}
	dup := al.Segments[1]
	if dup.Kind != KindDuplicate {
		t.Errorf("second segment kind = %v, want duplicate", dup.Kind)
	}
	if dup.Target.Start != 0 {
		t.Errorf("duplicate target start = %v, want 0", dup.Target.Start)
	}
}

func TestAlignSilentReference(t *testing.T) {
	silent := make([]float64, 4*testRate)
	ref, err := audio.NewStream("ref", testRate, silent)
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}
	target := noiseStream(t, "target", 14, 4)

	al, stats := mustAlign(t, testConfig(), ref, target)

	// Silence matches nothing; the run still completes with full gaps.
	if got := al.Coverage(); got != 0 {
		t.Errorf("coverage = %v, want 0", got)
	}
	if stats.DegeneratePairs == 0 {
		t.Error("expected degenerate pairs for a silent reference")
	}
}

func TestAlignOverlapInvariance(t *testing.T) {
	ref := noiseStream(t, "ref", 15, 10)
	target := subStream(t, "target", ref, 4*time.Second, 10*time.Second)

	cfg := testConfig()
	cfg.ScoreThreshold = 0.6
	plain, _ := mustAlign(t, cfg, ref, target)

	cfg.Overlap = 0.5
	overlapped, _ := mustAlign(t, cfg, ref, target)

	if got, want := overlapped.Coverage(), plain.Coverage(); math.Abs(got-want) > 1e-9 {
		t.Errorf("overlap changed coverage: %v vs %v", got, want)
	}
	if len(overlapped.Matched()) != 1 || len(plain.Matched()) != 1 {
		t.Fatalf("expected one matched segment each, got %v and %v",
			overlapped.Matched(), plain.Matched())
	}
	if overlapped.Matched()[0].Offset() != plain.Matched()[0].Offset() {
		t.Errorf("overlap changed the detected offset: %v vs %v",
			overlapped.Matched()[0].Offset(), plain.Matched()[0].Offset())
	}
}

func TestAlignMaxInFlightInvariance(t *testing.T) {
	ref := noiseStream(t, "ref", 18, 10)
	target := subStream(t, "target", ref, 4*time.Second, 10*time.Second)

	wide, _ := mustAlign(t, testConfig(), ref, target)

	cfg := testConfig()
	cfg.MaxInFlight = 1
	narrow, _ := mustAlign(t, cfg, ref, target)

	if got, want := narrow.Coverage(), wide.Coverage(); math.Abs(got-want) > 1e-9 {
		t.Errorf("batch size changed coverage: %v vs %v", got, want)
	}
	if len(narrow.Segments) != len(wide.Segments) {
		t.Fatalf("batch size changed segmentation: %v vs %v", narrow.Segments, wide.Segments)
	}
	for i := range narrow.Segments {
		if narrow.Segments[i] != wide.Segments[i] {
			t.Errorf("segment %d differs: %+v vs %+v", i, narrow.Segments[i], wide.Segments[i])
		}
	}
}

func TestConfigMaxInFlightDefault(t *testing.T) {
	cfg := Config{Workers: 3}
	cfg.Normalize()
	if cfg.MaxInFlight != 6 {
		t.Errorf("max in-flight = %d, want twice the worker count", cfg.MaxInFlight)
	}
}

func TestAlignSampleRateMismatch(t *testing.T) {
	ref := noiseStream(t, "ref", 16, 2)
	other, err := audio.NewStream("target", testRate*2, make([]float64, testRate))
	if err != nil {
		t.Fatalf("NewStream failed: %v", err)
	}

	aligner, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, _, err := aligner.Align(context.Background(), ref, other); !errors.Is(err, audio.ErrSampleRateMismatch) {
		t.Errorf("err = %v, want ErrSampleRateMismatch", err)
	}
}

func TestAlignCancellation(t *testing.T) {
	ref := noiseStream(t, "ref", 17, 6)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	aligner, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, _, err := aligner.Align(ctx, ref, ref); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestConfigValidation(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.ChunkDuration = -time.Second },
		func(c *Config) { c.Overlap = 1.0 },
		func(c *Config) { c.ScoreThreshold = 2 },
		func(c *Config) { c.Workers = -1 },
		func(c *Config) { c.MaxInFlight = -1 },
	}
	for i, mutate := range cases {
		cfg := testConfig()
		mutate(&cfg)
		if _, err := New(cfg, nil); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("case %d: err = %v, want ErrInvalidConfiguration", i, err)
		}
	}
}
