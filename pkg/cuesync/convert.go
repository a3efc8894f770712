package cuesync

import (
	"cuesync/internal/align"
	"cuesync/internal/storage"
)

func kindFromAlign(k align.SegmentKind) SegmentKind {
	switch k {
	case align.KindGap:
		return Gap
	case align.KindDuplicate:
		return Duplicate
	default:
		return Match
	}
}

func kindToAlign(k SegmentKind) align.SegmentKind {
	switch k {
	case Gap:
		return align.KindGap
	case Duplicate:
		return align.KindDuplicate
	default:
		return align.KindMatch
	}
}

func fromAlignment(al *align.Alignment, stats align.Stats) *Result {
	res := &Result{
		Segments:    make([]Segment, 0, len(al.Segments)),
		RefDuration: al.RefDuration,
		Coverage:    al.Coverage(),
		Stats: Stats{
			RefChunks:       stats.RefChunks,
			TargetChunks:    stats.TargetChunks,
			Pairs:           stats.Pairs,
			DegeneratePairs: stats.DegeneratePairs,
		},
	}
	for _, seg := range al.Segments {
		res.Segments = append(res.Segments, Segment{
			RefStart:    seg.Ref.Start,
			RefEnd:      seg.Ref.End,
			TargetStart: seg.Target.Start,
			TargetEnd:   seg.Target.End,
			Kind:        kindFromAlign(seg.Kind),
			Confidence:  seg.Confidence,
		})
	}
	return res
}

// ToAlignment rebuilds the internal alignment from a result, for feeding a
// result back into label or cue mapping.
func toAlignment(res *Result) *align.Alignment {
	al := &align.Alignment{
		Segments:    make([]align.Segment, 0, len(res.Segments)),
		RefDuration: res.RefDuration,
	}
	for _, seg := range res.Segments {
		al.Segments = append(al.Segments, align.Segment{
			Ref:        align.Span{Start: seg.RefStart, End: seg.RefEnd},
			Target:     align.Span{Start: seg.TargetStart, End: seg.TargetEnd},
			Kind:       kindToAlign(seg.Kind),
			Confidence: seg.Confidence,
		})
	}
	return al
}

func fromRun(r *storage.Run, withSegments bool) *ArchivedRun {
	run := &ArchivedRun{
		ID:            r.ID,
		ReferencePath: r.ReferencePath,
		TargetPath:    r.TargetPath,
		SampleRate:    r.SampleRate,
		Coverage:      r.Coverage,
		CreatedAt:     r.CreatedAt,
	}
	if withSegments {
		al := r.Alignment()
		for _, seg := range al.Segments {
			run.Segments = append(run.Segments, Segment{
				RefStart:    seg.Ref.Start,
				RefEnd:      seg.Ref.End,
				TargetStart: seg.Target.Start,
				TargetEnd:   seg.Target.End,
				Kind:        kindFromAlign(seg.Kind),
				Confidence:  seg.Confidence,
			})
		}
	}
	return run
}
