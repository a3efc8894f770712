package align

import (
	"fmt"
	"time"
)

// Span is a half-open time range [Start, End) on one recording's timeline.
type Span struct {
	Start time.Duration
	End   time.Duration
}

func (s Span) Duration() time.Duration { return s.End - s.Start }

func (s Span) String() string {
	return fmt.Sprintf("%.3fs-%.3fs", s.Start.Seconds(), s.End.Seconds())
}

// SegmentKind classifies a segment of the alignment.
type SegmentKind int

const (
	// KindMatch is a normally ordered correspondence between the two
	// timelines.
	KindMatch SegmentKind = iota
	// KindGap is a reference span with no target correspondence, i.e.
	// content that was cut.
	KindGap
	// KindDuplicate is a match whose target span reuses content already
	// claimed by an earlier segment; target monotonicity is relaxed exactly
	// for these.
	KindDuplicate
)

func (k SegmentKind) String() string {
	switch k {
	case KindMatch:
		return "match"
	case KindGap:
		return "gap"
	case KindDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Segment is one contiguous correspondence between a reference span and a
// target span. Ref and Target always have equal durations; cuesync does not
// model time-stretching. For gaps Target is the zero Span.
type Segment struct {
	Ref        Span
	Target     Span
	Kind       SegmentKind
	Confidence float64
}

// Offset returns the target-minus-reference time offset of the segment.
func (s Segment) Offset() time.Duration { return s.Target.Start - s.Ref.Start }

// Alignment is the ordered result of one run: segments non-overlapping and
// increasing on the reference timeline, increasing on the target timeline
// except for segments flagged KindDuplicate.
type Alignment struct {
	Segments []Segment
	// RefDuration is the total reference duration the alignment covers,
	// including gaps.
	RefDuration time.Duration
}

// Coverage reports the fraction of the reference duration matched by non-gap
// segments, in [0, 1]. This is the overall confidence of the run.
func (a *Alignment) Coverage() float64 {
	if a.RefDuration <= 0 {
		return 0
	}
	var matched time.Duration
	for _, seg := range a.Segments {
		if seg.Kind != KindGap {
			matched += seg.Ref.Duration()
		}
	}
	return matched.Seconds() / a.RefDuration.Seconds()
}

// Matched returns only the non-gap segments.
func (a *Alignment) Matched() []Segment {
	out := make([]Segment, 0, len(a.Segments))
	for _, seg := range a.Segments {
		if seg.Kind != KindGap {
			out = append(out, seg)
		}
	}
	return out
}

// Candidate is one plausible correspondence for a single reference chunk,
// produced by peak detection on a correlation curve.
type Candidate struct {
	RefIndex   int
	RefStart   time.Duration
	RefDur     time.Duration
	Offset     time.Duration // target time minus reference time
	Score      float64
	Prominence float64
	Width      time.Duration
}

// TargetStart returns the target-timeline start implied by the candidate.
func (c Candidate) TargetStart() time.Duration { return c.RefStart + c.Offset }

// ChunkCandidates collects all candidates found for one reference chunk, in
// score-descending order. An empty Candidates list means the chunk matched
// nothing above threshold.
type ChunkCandidates struct {
	RefIndex   int
	RefStart   time.Duration
	RefDur     time.Duration
	Candidates []Candidate
}
