package audio

import (
	"fmt"
	"time"
)

// Stream is a finite sequence of mono PCM samples at a fixed rate, normalized
// to [-1, 1]. Streams are immutable after construction and safe for
// concurrent reads.
type Stream struct {
	id      string
	rate    int
	samples []float64
}

// NewStream wraps samples in a Stream. The samples are borrowed, not copied;
// the caller must not mutate them afterwards.
func NewStream(id string, sampleRate int, samples []float64) (*Stream, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("stream %q: invalid sample rate %d", id, sampleRate)
	}
	return &Stream{id: id, rate: sampleRate, samples: samples}, nil
}

// ID returns the caller-chosen identifier, usually the source path.
func (s *Stream) ID() string { return s.id }

// SampleRate returns the rate in Hz.
func (s *Stream) SampleRate() int { return s.rate }

// Len returns the number of samples.
func (s *Stream) Len() int { return len(s.samples) }

// Duration returns the total playing time.
func (s *Stream) Duration() time.Duration {
	return time.Duration(float64(len(s.samples)) / float64(s.rate) * float64(time.Second))
}

// SampleAt converts a time offset to the nearest sample index, clamped to the
// stream bounds.
func (s *Stream) SampleAt(t time.Duration) int {
	idx := int(t.Seconds()*float64(s.rate) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx > len(s.samples) {
		idx = len(s.samples)
	}
	return idx
}

// TimeAt converts a sample index to its time offset.
func (s *Stream) TimeAt(idx int) time.Duration {
	return time.Duration(float64(idx) / float64(s.rate) * float64(time.Second))
}

// ReadRange returns the samples covering [start, start+dur). The returned
// slice is a view into the stream and must be treated as read-only. Ranges
// extending past the end are truncated; a range fully outside the stream
// yields an empty slice.
func (s *Stream) ReadRange(start, dur time.Duration) []float64 {
	lo := s.SampleAt(start)
	hi := s.SampleAt(start + dur)
	if hi < lo {
		hi = lo
	}
	return s.samples[lo:hi]
}

// Samples returns the whole sample buffer as a read-only view.
func (s *Stream) Samples() []float64 { return s.samples }
