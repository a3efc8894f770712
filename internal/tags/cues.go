package tags

import (
	"sort"
	"time"

	"cuesync/internal/align"
	"cuesync/pkg/marker"
)

// Cue is a named instant on a recording's timeline, typically a chapter or
// track boundary.
type Cue struct {
	At    time.Duration
	Title string
}

// CueSheet is an ordered list of cues on one timeline.
type CueSheet struct {
	Cues []Cue
}

// FromLabels builds a cue sheet from an Audacity label track, taking each
// label's start as the cue instant.
func FromLabels(labels []marker.TimeLabel) CueSheet {
	cues := make([]Cue, 0, len(labels))
	for _, l := range labels {
		cues = append(cues, Cue{At: l.Start, Title: l.Title})
	}
	return CueSheet{Cues: cues}
}

// ToLabels renders the sheet as point labels.
func (s CueSheet) ToLabels() []marker.TimeLabel {
	labels := make([]marker.TimeLabel, 0, len(s.Cues))
	for _, c := range s.Cues {
		labels = append(labels, marker.TimeLabel{Start: c.At, End: c.At, Title: c.Title})
	}
	return labels
}

// MapToTarget carries reference-timeline cues over to the target timeline
// through the alignment. A cue landing in a gap was cut and is dropped; a
// cue inside content that appears more than once in the target maps once per
// occurrence. The result is sorted by target time.
func (s CueSheet) MapToTarget(al *align.Alignment) CueSheet {
	var out []Cue
	for _, cue := range s.Cues {
		for _, seg := range al.Segments {
			if seg.Kind == align.KindGap {
				continue
			}
			if cue.At < seg.Ref.Start || cue.At >= seg.Ref.End {
				continue
			}
			out = append(out, Cue{At: cue.At + seg.Offset(), Title: cue.Title})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At < out[j].At })
	return CueSheet{Cues: out}
}
