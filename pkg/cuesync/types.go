package cuesync

import "time"

// SegmentKind classifies one segment of an alignment result.
type SegmentKind string

const (
	Match     SegmentKind = "match"
	Gap       SegmentKind = "gap"
	Duplicate SegmentKind = "duplicate"
)

// Segment is one correspondence between the reference and target timelines.
// Gap segments have zero target times: that reference span has no
// counterpart in the target.
type Segment struct {
	RefStart    time.Duration `json:"ref_start"`
	RefEnd      time.Duration `json:"ref_end"`
	TargetStart time.Duration `json:"target_start"`
	TargetEnd   time.Duration `json:"target_end"`
	Kind        SegmentKind   `json:"kind"`
	Confidence  float64       `json:"confidence"`
}

// Offset returns the target-minus-reference time shift of the segment.
func (s Segment) Offset() time.Duration { return s.TargetStart - s.RefStart }

// Stats summarizes the work an alignment run did.
type Stats struct {
	RefChunks       int `json:"ref_chunks"`
	TargetChunks    int `json:"target_chunks"`
	Pairs           int `json:"pairs"`
	DegeneratePairs int `json:"degenerate_pairs"`
}

// Result is the outcome of one alignment run. Segments tile the full
// reference duration in order; Coverage is the matched fraction of it.
type Result struct {
	Segments    []Segment     `json:"segments"`
	RefDuration time.Duration `json:"ref_duration"`
	Coverage    float64       `json:"coverage"`
	Stats       Stats         `json:"stats"`
	// RunID is set when the run was archived.
	RunID string `json:"run_id,omitempty"`
}

// Matched returns only the non-gap segments.
func (r *Result) Matched() []Segment {
	out := make([]Segment, 0, len(r.Segments))
	for _, seg := range r.Segments {
		if seg.Kind != Gap {
			out = append(out, seg)
		}
	}
	return out
}

// ArchivedRun is a previously archived run as read back from storage.
type ArchivedRun struct {
	ID            string    `json:"id"`
	ReferencePath string    `json:"reference_path"`
	TargetPath    string    `json:"target_path"`
	SampleRate    int       `json:"sample_rate"`
	Coverage      float64   `json:"coverage"`
	CreatedAt     time.Time `json:"created_at"`
	Segments      []Segment `json:"segments,omitempty"`
}
