package marker

import (
	"fmt"
	"time"

	"cuesync/internal/align"
)

// FromAlignment renders the matched segments as labels on the target
// timeline, titled with the reference span they came from. Duplicate
// segments get a "dup " prefix so repeated content is visible at a glance.
func FromAlignment(al *align.Alignment) []TimeLabel {
	segs := al.Matched()
	labels := make([]TimeLabel, 0, len(segs))
	for _, seg := range segs {
		title := fmt.Sprintf("source %s-%s", clock(seg.Ref.Start), clock(seg.Ref.End))
		if seg.Kind == align.KindDuplicate {
			title = "dup " + title
		}
		labels = append(labels, TimeLabel{
			Start: seg.Target.Start,
			End:   seg.Target.End,
			Title: title,
		})
	}
	return labels
}

// GapLabels renders the unmatched reference spans as labels on the reference
// timeline, for reviewing what the edited cut dropped.
func GapLabels(al *align.Alignment) []TimeLabel {
	var labels []TimeLabel
	for _, seg := range al.Segments {
		if seg.Kind != align.KindGap {
			continue
		}
		labels = append(labels, TimeLabel{
			Start: seg.Ref.Start,
			End:   seg.Ref.End,
			Title: "cut",
		})
	}
	return labels
}

func clock(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := d.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}
