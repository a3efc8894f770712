package cuesync

import (
	"cuesync/internal/tags"
	"cuesync/pkg/marker"
)

// Labels renders the result's matched segments as an Audacity label track on
// the target timeline.
func Labels(res *Result) []marker.TimeLabel {
	return marker.FromAlignment(toAlignment(res))
}

// CutLabels renders the unmatched reference spans as labels on the reference
// timeline.
func CutLabels(res *Result) []marker.TimeLabel {
	return marker.GapLabels(toAlignment(res))
}

// MapCues carries cue labels from the reference timeline onto the target
// timeline through the result. Cues in cut content are dropped; cues inside
// repeated content map once per occurrence.
func MapCues(res *Result, cues []marker.TimeLabel) []marker.TimeLabel {
	return tags.FromLabels(cues).MapToTarget(toAlignment(res)).ToLabels()
}
