package align

import (
	"fmt"
	"time"

	"cuesync/internal/audio"
)

// Chunk is one fixed-duration window of a stream. Samples is a read-only view
// into the backing stream, not a copy.
type Chunk struct {
	StreamID string
	Index    int
	Start    time.Duration
	Samples  []float64
}

// Duration returns the chunk's actual length, which may be shorter than the
// configured chunk duration for the final chunk.
func (c Chunk) Duration(sampleRate int) time.Duration {
	return time.Duration(float64(len(c.Samples)) / float64(sampleRate) * float64(time.Second))
}

// End returns the chunk's end time on its stream's timeline.
func (c Chunk) End(sampleRate int) time.Duration { return c.Start + c.Duration(sampleRate) }

// Chunker splits a stream into fixed-duration, possibly overlapping windows.
// Chunks are addressed by index and can be re-read in any order; the chunker
// holds no state beyond the geometry, so iteration is restartable for free.
type Chunker struct {
	stream  *audio.Stream
	size    time.Duration
	overlap float64
	step    time.Duration
	count   int
}

// NewChunker validates the geometry and returns a chunker over stream. The
// final chunk may be shorter than size; it is never padded.
func NewChunker(stream *audio.Stream, size time.Duration, overlap float64) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk duration %v must be positive", ErrInvalidConfiguration, size)
	}
	if overlap < 0 || overlap >= 1 {
		return nil, fmt.Errorf("%w: overlap %v must be in [0, 1)", ErrInvalidConfiguration, overlap)
	}

	step := time.Duration(float64(size) * (1 - overlap))
	if step <= 0 {
		step = time.Nanosecond
	}

	total := stream.Duration()
	count := 0
	if total > 0 {
		count = 1
		for start := step; start < total; start += step {
			count++
		}
	}

	return &Chunker{
		stream:  stream,
		size:    size,
		overlap: overlap,
		step:    step,
		count:   count,
	}, nil
}

// Count returns the number of chunks covering the stream end-to-end.
func (c *Chunker) Count() int { return c.count }

// Step returns the time between consecutive chunk starts.
func (c *Chunker) Step() time.Duration { return c.step }

// Size returns the configured chunk duration.
func (c *Chunker) Size() time.Duration { return c.size }

// SampleRate returns the backing stream's rate.
func (c *Chunker) SampleRate() int { return c.stream.SampleRate() }

// At materializes chunk i. Panics if i is out of range, matching slice
// indexing semantics.
func (c *Chunker) At(i int) Chunk {
	if i < 0 || i >= c.count {
		panic(fmt.Sprintf("chunk index %d out of range [0, %d)", i, c.count))
	}
	start := time.Duration(i) * c.step
	return Chunk{
		StreamID: c.stream.ID(),
		Index:    i,
		Start:    start,
		Samples:  c.stream.ReadRange(start, c.size),
	}
}

// IndexAt returns the index of the chunk whose start is nearest below t,
// clamped to the valid range.
func (c *Chunker) IndexAt(t time.Duration) int {
	if t < 0 || c.count == 0 {
		return 0
	}
	i := int(t / c.step)
	if i >= c.count {
		i = c.count - 1
	}
	return i
}
