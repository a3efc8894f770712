package align

import (
	"fmt"
	"sort"
	"time"
)

// Assembler turns per-chunk candidate lists into an ordered alignment. It is
// a pure function of its input: assembling the same candidates twice yields
// the same alignment.
type Assembler struct {
	// BacktrackTolerance lets a match start up to this far before the
	// running target frontier and still count as in order. It absorbs
	// chunk-overlap jitter without admitting real rewinds.
	BacktrackTolerance time.Duration
	// OffsetTolerance merges adjacent matches whose target offsets agree
	// within this bound into one segment.
	OffsetTolerance time.Duration
}

// NewAssembler validates the tolerances.
func NewAssembler(backtrack, offset time.Duration) (*Assembler, error) {
	if backtrack < 0 {
		return nil, fmt.Errorf("%w: backtrack tolerance %v negative", ErrInvalidConfiguration, backtrack)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset tolerance %v negative", ErrInvalidConfiguration, offset)
	}
	return &Assembler{BacktrackTolerance: backtrack, OffsetTolerance: offset}, nil
}

// Assemble chains the candidates into segments ordered on the reference
// timeline. Chunks with a candidate consistent with the running target
// frontier extend the chain; chunks whose every candidate points backwards
// become duplicates and leave the frontier alone; chunks with no candidates
// at all surface as gaps. Adjacent matches with agreeing offsets are merged,
// and every uncovered reference span is emitted as an explicit gap segment,
// so the result tiles [0, refDuration) exactly.
func (a *Assembler) Assemble(chunks []ChunkCandidates, refDuration time.Duration) (*Alignment, error) {
	if refDuration <= 0 {
		return nil, fmt.Errorf("%w: reference duration %v must be positive", ErrInvalidConfiguration, refDuration)
	}

	ordered := make([]ChunkCandidates, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].RefIndex < ordered[j].RefIndex })

	var (
		raw      []Segment
		frontier time.Duration
		started  bool
	)
	for _, cc := range ordered {
		if len(cc.Candidates) == 0 {
			continue
		}
		cand, kind := a.choose(cc, frontier, started)
		seg := Segment{
			Ref:        Span{Start: cc.RefStart, End: cc.RefStart + cc.RefDur},
			Target:     Span{Start: cand.TargetStart(), End: cand.TargetStart() + cc.RefDur},
			Kind:       kind,
			Confidence: cand.Score,
		}
		raw = append(raw, seg)
		if kind == KindMatch {
			frontier = seg.Target.End
			started = true
		}
	}

	merged := a.merge(raw)
	tiled := tileGaps(merged, refDuration)

	return &Alignment{Segments: tiled, RefDuration: refDuration}, nil
}

// choose picks the chunk's winning candidate. Candidates arrive sorted by
// score descending; the first one whose target start respects the frontier
// wins, with equal scores broken toward the smaller forward jump. If none is
// consistent the strongest candidate is taken as a duplicate.
func (a *Assembler) choose(cc ChunkCandidates, frontier time.Duration, started bool) (Candidate, SegmentKind) {
	if !started {
		return cc.Candidates[0], KindMatch
	}

	floor := frontier - a.BacktrackTolerance
	best := -1
	for i, cand := range cc.Candidates {
		ts := cand.TargetStart()
		if ts < floor {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		if cand.Score == cc.Candidates[best].Score && ts < cc.Candidates[best].TargetStart() {
			best = i
		}
	}
	if best < 0 {
		return cc.Candidates[0], KindDuplicate
	}
	return cc.Candidates[best], KindMatch
}

// merge collapses overlapping or contiguous segments that carry the same
// offset, and trims reference overlap between segments that do not merge so
// the output is strictly increasing on the reference timeline.
func (a *Assembler) merge(raw []Segment) []Segment {
	var out []Segment
	for _, seg := range raw {
		if len(out) == 0 {
			out = append(out, seg)
			continue
		}
		prev := &out[len(out)-1]

		if a.mergeable(*prev, seg) {
			if seg.Ref.End > prev.Ref.End {
				prev.Ref.End = seg.Ref.End
				prev.Target.End = prev.Target.Start + prev.Ref.Duration()
			}
			if seg.Confidence > prev.Confidence {
				prev.Confidence = seg.Confidence
			}
			continue
		}

		// Overlapping chunks claim overlapping reference spans; the earlier
		// segment keeps the contested region.
		if seg.Ref.Start < prev.Ref.End {
			delta := prev.Ref.End - seg.Ref.Start
			if delta >= seg.Ref.Duration() {
				continue
			}
			seg.Ref.Start += delta
			seg.Target.Start += delta
		}
		out = append(out, seg)
	}
	return out
}

func (a *Assembler) mergeable(prev, next Segment) bool {
	if prev.Kind != next.Kind {
		return false
	}
	if next.Ref.Start > prev.Ref.End {
		return false
	}
	diff := next.Offset() - prev.Offset()
	if diff < 0 {
		diff = -diff
	}
	return diff <= a.OffsetTolerance
}

// tileGaps fills every uncovered reference span with an explicit gap segment
// so the segments tile the full reference duration.
func tileGaps(segs []Segment, refDuration time.Duration) []Segment {
	out := make([]Segment, 0, len(segs)*2+1)
	cursor := time.Duration(0)
	for _, seg := range segs {
		if seg.Ref.Start >= refDuration {
			break
		}
		if seg.Ref.End > refDuration {
			trim := seg.Ref.End - refDuration
			seg.Ref.End = refDuration
			seg.Target.End -= trim
		}
		if seg.Ref.Start > cursor {
			out = append(out, Segment{
				Ref:  Span{Start: cursor, End: seg.Ref.Start},
				Kind: KindGap,
			})
		}
		out = append(out, seg)
		if seg.Ref.End > cursor {
			cursor = seg.Ref.End
		}
	}
	if cursor < refDuration {
		out = append(out, Segment{
			Ref:  Span{Start: cursor, End: refDuration},
			Kind: KindGap,
		})
	}
	return out
}
