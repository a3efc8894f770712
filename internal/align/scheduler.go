package align

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pair is one correlation job: a reference chunk against a target chunk.
type Pair struct {
	Ref    Chunk
	Target Chunk
}

// PairResult is the outcome of one pair. Degenerate marks a silent chunk on
// either side; such pairs simply produce no candidates and the run goes on.
type PairResult struct {
	RefIndex    int
	TargetIndex int
	Degenerate  bool
	Candidates  []Candidate
}

// Progress receives a tick as each correlation job completes. Implementations
// must be safe for concurrent use.
type Progress interface {
	Increment()
}

// Scheduler fans correlation jobs out over a bounded worker pool. Results are
// written into a slice indexed by job position, so the output order never
// depends on goroutine interleaving.
type Scheduler struct {
	workers  int
	rate     int
	peaks    PeakConfig
	progress Progress
}

// NewScheduler validates the pool geometry. progress may be nil.
func NewScheduler(workers, sampleRate int, peaks PeakConfig, progress Progress) (*Scheduler, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: worker count %d must be positive", ErrInvalidConfiguration, workers)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d must be positive", ErrInvalidConfiguration, sampleRate)
	}
	if err := peaks.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{workers: workers, rate: sampleRate, peaks: peaks, progress: progress}, nil
}

// Run correlates every pair and returns the results in job order. A silent
// chunk only marks its own pair degenerate; any other failure or context
// cancellation aborts the whole batch.
func (s *Scheduler) Run(ctx context.Context, jobs []Pair) ([]PairResult, error) {
	results := make([]PairResult, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.correlatePair(job)
			if err != nil {
				return err
			}
			results[i] = res
			if s.progress != nil {
				s.progress.Increment()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Scheduler) correlatePair(p Pair) (PairResult, error) {
	res := PairResult{RefIndex: p.Ref.Index, TargetIndex: p.Target.Index}

	curve, err := CrossCorrelate(p.Ref.Samples, p.Target.Samples)
	if errors.Is(err, ErrDegenerateSignal) {
		res.Degenerate = true
		return res, nil
	}
	if err != nil {
		return res, err
	}

	peaks, err := FindPeaks(curve.Scores, s.peaks)
	if err != nil {
		return res, err
	}

	refDur := p.Ref.Duration(s.rate)
	for _, pk := range peaks {
		res.Candidates = append(res.Candidates, Candidate{
			RefIndex:   p.Ref.Index,
			RefStart:   p.Ref.Start,
			RefDur:     refDur,
			Offset:     p.Target.Start - p.Ref.Start + s.samplesToDur(curve.Lag(pk.Index)),
			Score:      pk.Score,
			Prominence: pk.Prominence,
			Width:      s.samplesToDur(pk.Width),
		})
	}
	return res, nil
}

func (s *Scheduler) samplesToDur(n int) time.Duration {
	return time.Duration(float64(n) / float64(s.rate) * float64(time.Second))
}
