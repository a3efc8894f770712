package align

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"cuesync/internal/audio"
)

// Defaults for the alignment tunables.
const (
	DefaultChunkDuration   = 60 * time.Second
	DefaultSearchWindow    = 10 * time.Minute
	DefaultScoreThreshold  = 0.1
	DefaultProminence      = 0.13
	DefaultMinPeakDistance = 8 * time.Minute
	DefaultBacktrack       = 2 * time.Second
	DefaultOffsetTolerance = 250 * time.Millisecond
)

// Config holds every tunable of a run. The zero value is not usable; call
// Normalize (or go through the cuesync package, which does) to fill in
// defaults before validating.
type Config struct {
	// ChunkDuration is the reference window size.
	ChunkDuration time.Duration
	// Overlap is the fraction of ChunkDuration shared by consecutive
	// chunks, in [0, 1).
	Overlap float64
	// SearchWindow bounds how far, on either side of the running offset
	// estimate, target chunks are searched. Zero disables the bound and
	// every reference chunk is correlated against the whole target.
	SearchWindow time.Duration
	// ScoreThreshold is the absolute correlation floor for a peak.
	ScoreThreshold float64
	// Prominence is the minimum peak prominence, on the normalized scale.
	Prominence float64
	// MinPeakDistance suppresses peaks closer than this to a more
	// prominent one on the same curve.
	MinPeakDistance time.Duration
	// Backtrack and OffsetTolerance feed the assembler; see Assembler.
	Backtrack       time.Duration
	OffsetTolerance time.Duration
	// Workers bounds the correlation pool. Zero means GOMAXPROCS.
	Workers int
	// MaxInFlight bounds how many reference chunks are materialized and
	// dispatched per batch, and with it the buffered sample memory of a
	// run. Zero means twice the worker count.
	MaxInFlight int
}

// Normalize fills unset fields with defaults.
func (c *Config) Normalize() {
	if c.ChunkDuration == 0 {
		c.ChunkDuration = DefaultChunkDuration
	}
	if c.ScoreThreshold == 0 {
		c.ScoreThreshold = DefaultScoreThreshold
	}
	if c.Prominence == 0 {
		c.Prominence = DefaultProminence
	}
	if c.MinPeakDistance == 0 {
		c.MinPeakDistance = DefaultMinPeakDistance
	}
	if c.Backtrack == 0 {
		c.Backtrack = DefaultBacktrack
	}
	if c.OffsetTolerance == 0 {
		c.OffsetTolerance = DefaultOffsetTolerance
	}
	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.MaxInFlight == 0 {
		c.MaxInFlight = 2 * c.Workers
	}
}

// Validate reports the first malformed field.
func (c Config) Validate() error {
	if c.ChunkDuration <= 0 {
		return fmt.Errorf("%w: chunk duration %v must be positive", ErrInvalidConfiguration, c.ChunkDuration)
	}
	if c.Overlap < 0 || c.Overlap >= 1 {
		return fmt.Errorf("%w: overlap %v must be in [0, 1)", ErrInvalidConfiguration, c.Overlap)
	}
	if c.SearchWindow < 0 {
		return fmt.Errorf("%w: search window %v negative", ErrInvalidConfiguration, c.SearchWindow)
	}
	if c.ScoreThreshold < -1 || c.ScoreThreshold > 1 {
		return fmt.Errorf("%w: score threshold %v outside [-1, 1]", ErrInvalidConfiguration, c.ScoreThreshold)
	}
	if c.Prominence < 0 || c.Prominence > 2 {
		return fmt.Errorf("%w: prominence %v outside [0, 2]", ErrInvalidConfiguration, c.Prominence)
	}
	if c.MinPeakDistance < 0 {
		return fmt.Errorf("%w: min peak distance %v negative", ErrInvalidConfiguration, c.MinPeakDistance)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: worker count %d must be positive", ErrInvalidConfiguration, c.Workers)
	}
	if c.MaxInFlight <= 0 {
		return fmt.Errorf("%w: max in-flight chunks %d must be positive", ErrInvalidConfiguration, c.MaxInFlight)
	}
	return nil
}

// Stats summarizes the work a run did.
type Stats struct {
	RefChunks       int
	TargetChunks    int
	Pairs           int
	DegeneratePairs int
}

// Aligner runs the full pipeline: chunk both streams, correlate pairs over a
// bounded pool, detect peaks, and assemble the monotonic alignment.
type Aligner struct {
	cfg      Config
	asm      *Assembler
	progress Progress
}

// New builds an aligner from cfg. progress may be nil.
func New(cfg Config, progress Progress) (*Aligner, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	asm, err := NewAssembler(cfg.Backtrack, cfg.OffsetTolerance)
	if err != nil {
		return nil, err
	}
	return &Aligner{cfg: cfg, asm: asm, progress: progress}, nil
}

// totaler is the optional wide side of Progress: bars that track a total get
// told how many jobs each batch adds.
type totaler interface {
	AddTotal(n int)
}

// Align aligns target against ref. Reference chunks are dispatched in
// batches; between batches the running offset estimate narrows the next
// batch's target search window, and two consecutive chunks without a
// forward-consistent match widen it back to a full search.
func (a *Aligner) Align(ctx context.Context, ref, target *audio.Stream) (*Alignment, Stats, error) {
	if ref.SampleRate() != target.SampleRate() {
		return nil, Stats{}, fmt.Errorf("%w: reference %d Hz, target %d Hz",
			audio.ErrSampleRateMismatch, ref.SampleRate(), target.SampleRate())
	}

	refChunks, err := NewChunker(ref, a.cfg.ChunkDuration, a.cfg.Overlap)
	if err != nil {
		return nil, Stats{}, err
	}
	targetChunks, err := NewChunker(target, a.cfg.ChunkDuration, a.cfg.Overlap)
	if err != nil {
		return nil, Stats{}, err
	}

	rate := ref.SampleRate()
	peaks := PeakConfig{
		MinScore:      a.cfg.ScoreThreshold,
		MinProminence: a.cfg.Prominence,
		MinDistance:   int(a.cfg.MinPeakDistance.Seconds() * float64(rate)),
	}
	sched, err := NewScheduler(a.cfg.Workers, rate, peaks, a.progress)
	if err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{RefChunks: refChunks.Count(), TargetChunks: targetChunks.Count()}
	collected := make([]ChunkCandidates, 0, refChunks.Count())

	var (
		frontier     time.Duration
		started      bool
		estimate     time.Duration
		haveEstimate bool
		misses       int
	)

	batch := a.cfg.MaxInFlight
	for lo := 0; lo < refChunks.Count(); lo += batch {
		hi := lo + batch
		if hi > refChunks.Count() {
			hi = refChunks.Count()
		}

		var jobs []Pair
		for i := lo; i < hi; i++ {
			rc := refChunks.At(i)
			for _, t := range a.searchIndices(targetChunks, rc, estimate, haveEstimate) {
				jobs = append(jobs, Pair{Ref: rc, Target: targetChunks.At(t)})
			}
		}
		if t, ok := a.progress.(totaler); ok {
			t.AddTotal(len(jobs))
		}

		results, err := sched.Run(ctx, jobs)
		if err != nil {
			return nil, stats, err
		}
		stats.Pairs += len(jobs)

		perChunk := groupByRefChunk(refChunks, lo, hi, results, &stats)
		for _, cc := range perChunk {
			collected = append(collected, cc)
			if len(cc.Candidates) == 0 {
				misses++
			} else if cand, kind := a.asm.choose(cc, frontier, started); kind == KindMatch {
				frontier = cand.TargetStart() + cc.RefDur
				estimate = cand.Offset
				started, haveEstimate = true, true
				misses = 0
			} else {
				misses++
			}
			if misses >= 2 {
				haveEstimate = false
			}
		}
	}

	alignment, err := a.asm.Assemble(collected, ref.Duration())
	if err != nil {
		return nil, stats, err
	}
	return alignment, stats, nil
}

// searchIndices picks the target chunks to correlate rc against: everything
// within the search window around the expected target position, or the whole
// target when there is no usable estimate.
func (a *Aligner) searchIndices(targets *Chunker, rc Chunk, estimate time.Duration, haveEstimate bool) []int {
	n := targets.Count()
	if n == 0 {
		return nil
	}
	if !haveEstimate || a.cfg.SearchWindow <= 0 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}

	expected := rc.Start + estimate
	lo := targets.IndexAt(expected - a.cfg.SearchWindow)
	hi := targets.IndexAt(expected + a.cfg.SearchWindow)
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

// groupByRefChunk folds pair results into one candidate list per reference
// chunk in [lo, hi), sorted by score descending with ties broken toward the
// earlier target position.
func groupByRefChunk(refChunks *Chunker, lo, hi int, results []PairResult, stats *Stats) []ChunkCandidates {
	rate := refChunks.SampleRate()
	byIndex := make(map[int][]Candidate, hi-lo)
	for _, res := range results {
		if res.Degenerate {
			stats.DegeneratePairs++
			continue
		}
		byIndex[res.RefIndex] = append(byIndex[res.RefIndex], res.Candidates...)
	}

	out := make([]ChunkCandidates, 0, hi-lo)
	for i := lo; i < hi; i++ {
		rc := refChunks.At(i)
		cands := byIndex[i]
		sort.SliceStable(cands, func(a, b int) bool {
			if cands[a].Score != cands[b].Score {
				return cands[a].Score > cands[b].Score
			}
			return cands[a].TargetStart() < cands[b].TargetStart()
		})
		out = append(out, ChunkCandidates{
			RefIndex:   i,
			RefStart:   rc.Start,
			RefDur:     rc.Duration(rate),
			Candidates: cands,
		})
	}
	return out
}
