package align

import (
	"fmt"
	"sort"
)

// PeakConfig tunes peak detection on a correlation curve. Distances and
// widths are in curve samples.
type PeakConfig struct {
	// MinScore is the absolute height floor; samples below it are never
	// peaks.
	MinScore float64
	// MinProminence is the minimum rise of a peak above the higher of the
	// two valleys separating it from taller terrain.
	MinProminence float64
	// MinDistance suppresses peaks that sit within this many samples of a
	// more prominent peak.
	MinDistance int
}

// Validate reports the first malformed tunable, if any.
func (c PeakConfig) Validate() error {
	if c.MinScore < -1 || c.MinScore > 1 {
		return fmt.Errorf("%w: min score %v outside [-1, 1]", ErrInvalidConfiguration, c.MinScore)
	}
	if c.MinProminence < 0 {
		return fmt.Errorf("%w: min prominence %v negative", ErrInvalidConfiguration, c.MinProminence)
	}
	if c.MinDistance < 0 {
		return fmt.Errorf("%w: min distance %d negative", ErrInvalidConfiguration, c.MinDistance)
	}
	return nil
}

// Peak is one local maximum that survived thresholding.
type Peak struct {
	// Index is the sample position on the curve.
	Index int
	Score float64
	// Prominence is how far the peak rises above its key saddle.
	Prominence float64
	// Width is the span, in samples, over which the curve stays above
	// Score - Prominence/2.
	Width int
}

// FindPeaks locates the local maxima of curve that clear cfg's absolute
// score and prominence floors, then drops every peak that lies within
// cfg.MinDistance of a more prominent one. Results come back sorted by
// score descending. Plateaus count as a single peak at their left edge.
func FindPeaks(curve []float64, cfg PeakConfig) ([]Peak, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(curve) < 3 {
		return nil, nil
	}

	var peaks []Peak
	for i := 1; i < len(curve)-1; i++ {
		if curve[i] < cfg.MinScore {
			continue
		}
		if curve[i] <= curve[i-1] {
			continue
		}
		// Walk over a plateau; the peak stands only if the curve drops on
		// the far side.
		j := i
		for j < len(curve)-1 && curve[j+1] == curve[i] {
			j++
		}
		if j == len(curve)-1 || curve[j+1] >= curve[i] {
			i = j
			continue
		}

		prom := prominence(curve, i)
		if prom < cfg.MinProminence {
			i = j
			continue
		}
		peaks = append(peaks, Peak{
			Index:      i,
			Score:      curve[i],
			Prominence: prom,
			Width:      widthAt(curve, i, curve[i]-prom/2),
		})
		i = j
	}

	sort.SliceStable(peaks, func(a, b int) bool { return peaks[a].Score > peaks[b].Score })

	if cfg.MinDistance > 0 {
		peaks = suppressOvershadowed(peaks, cfg.MinDistance)
	}
	return peaks, nil
}

// prominence walks outward from peak i to the nearest sample strictly higher
// than it on each side, tracking the lowest valley crossed; the base is the
// higher of the two valleys. A peak with no higher terrain on one side uses
// the global minimum of that walk.
func prominence(curve []float64, i int) float64 {
	h := curve[i]

	left := h
	for j := i - 1; j >= 0; j-- {
		if curve[j] > h {
			break
		}
		if curve[j] < left {
			left = curve[j]
		}
	}
	right := h
	for j := i + 1; j < len(curve); j++ {
		if curve[j] > h {
			break
		}
		if curve[j] < right {
			right = curve[j]
		}
	}

	base := left
	if right > base {
		base = right
	}
	return h - base
}

// widthAt measures how many contiguous samples around i stay at or above
// level.
func widthAt(curve []float64, i int, level float64) int {
	lo := i
	for lo > 0 && curve[lo-1] >= level {
		lo--
	}
	hi := i
	for hi < len(curve)-1 && curve[hi+1] >= level {
		hi++
	}
	return hi - lo + 1
}

// suppressOvershadowed keeps, in order of decreasing score, every peak not
// within minDistance of an already kept peak with greater prominence. peaks
// must already be sorted by score descending.
func suppressOvershadowed(peaks []Peak, minDistance int) []Peak {
	kept := peaks[:0:0]
	for _, p := range peaks {
		shadowed := false
		for _, q := range kept {
			if abs(p.Index-q.Index) < minDistance && q.Prominence > p.Prominence {
				shadowed = true
				break
			}
		}
		if !shadowed {
			kept = append(kept, p)
		}
	}
	return kept
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
