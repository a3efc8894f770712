package align

import (
	"errors"
	"testing"
)

func TestFindPeaksBasic(t *testing.T) {
	// Two clear peaks at 3 and 9, a sub-threshold bump at 6.
	curve := []float64{0, 0.1, 0.4, 0.9, 0.3, 0.1, 0.15, 0.1, 0.5, 0.8, 0.2, 0}

	peaks, err := FindPeaks(curve, PeakConfig{MinScore: 0.3, MinProminence: 0.2})
	if err != nil {
		t.Fatalf("FindPeaks failed: %v", err)
	}
	if len(peaks) != 2 {
		t.Fatalf("got %d peaks %v, want 2", len(peaks), peaks)
	}
	if peaks[0].Index != 3 || peaks[1].Index != 9 {
		t.Errorf("peak indices = %d, %d, want 3, 9 (score order)", peaks[0].Index, peaks[1].Index)
	}
	if peaks[0].Score != 0.9 {
		t.Errorf("top score = %v, want 0.9", peaks[0].Score)
	}
}

func TestFindPeaksProminence(t *testing.T) {
	// The bump at index 5 rises only 0.1 above its saddle with the taller
	// peak at index 2.
	curve := []float64{0, 0.5, 0.9, 0.6, 0.6, 0.7, 0.3, 0}

	strict, err := FindPeaks(curve, PeakConfig{MinScore: 0.1, MinProminence: 0.2})
	if err != nil {
		t.Fatalf("FindPeaks failed: %v", err)
	}
	if len(strict) != 1 || strict[0].Index != 2 {
		t.Fatalf("strict prominence: got %v, want only index 2", strict)
	}

	loose, err := FindPeaks(curve, PeakConfig{MinScore: 0.1, MinProminence: 0.05})
	if err != nil {
		t.Fatalf("FindPeaks failed: %v", err)
	}
	if len(loose) != 2 {
		t.Fatalf("loose prominence: got %v, want 2 peaks", loose)
	}
}

func TestFindPeaksOvershadowed(t *testing.T) {
	// Two peaks 3 samples apart; the less prominent one must vanish when
	// the minimum distance covers both.
	curve := []float64{0, 0.2, 0.9, 0.4, 0.1, 0.6, 0.2, 0}

	all, err := FindPeaks(curve, PeakConfig{MinScore: 0.1, MinProminence: 0.1})
	if err != nil {
		t.Fatalf("FindPeaks failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("without distance: got %v, want 2 peaks", all)
	}

	spaced, err := FindPeaks(curve, PeakConfig{MinScore: 0.1, MinProminence: 0.1, MinDistance: 5})
	if err != nil {
		t.Fatalf("FindPeaks failed: %v", err)
	}
	if len(spaced) != 1 || spaced[0].Index != 2 {
		t.Fatalf("with distance: got %v, want only the peak at 2", spaced)
	}
}

func TestFindPeaksPlateau(t *testing.T) {
	curve := []float64{0, 0.3, 0.7, 0.7, 0.7, 0.2, 0}

	peaks, err := FindPeaks(curve, PeakConfig{MinScore: 0.1, MinProminence: 0.1})
	if err != nil {
		t.Fatalf("FindPeaks failed: %v", err)
	}
	if len(peaks) != 1 {
		t.Fatalf("plateau: got %v, want a single peak", peaks)
	}
	if peaks[0].Index != 2 {
		t.Errorf("plateau peak at %d, want left edge 2", peaks[0].Index)
	}
}

func TestFindPeaksEdgesIgnored(t *testing.T) {
	// Monotonic curves have no interior local maximum.
	rising := []float64{0.1, 0.5, 0.9}
	peaks, err := FindPeaks(rising, PeakConfig{MinScore: 0})
	if err != nil {
		t.Fatalf("FindPeaks failed: %v", err)
	}
	if len(peaks) != 0 {
		t.Errorf("rising curve: got %v, want no peaks", peaks)
	}
}

func TestFindPeaksInvalidConfig(t *testing.T) {
	curve := []float64{0, 1, 0}
	cases := []PeakConfig{
		{MinScore: 1.5},
		{MinProminence: -0.1},
		{MinDistance: -1},
	}
	for _, cfg := range cases {
		if _, err := FindPeaks(curve, cfg); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("config %+v: err = %v, want ErrInvalidConfiguration", cfg, err)
		}
	}
}

func TestFindPeaksWidth(t *testing.T) {
	curve := []float64{0, 0.2, 0.5, 0.8, 1.0, 0.8, 0.5, 0.2, 0}

	peaks, err := FindPeaks(curve, PeakConfig{MinScore: 0.5, MinProminence: 0.5})
	if err != nil {
		t.Fatalf("FindPeaks failed: %v", err)
	}
	if len(peaks) != 1 {
		t.Fatalf("got %v, want one peak", peaks)
	}
	// Prominence 1.0, so the width level is 0.5; five samples sit at or
	// above it.
	if peaks[0].Width != 5 {
		t.Errorf("width = %d, want 5", peaks[0].Width)
	}
}
