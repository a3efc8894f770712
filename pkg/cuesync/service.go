// Package cuesync aligns two recordings of overlapping audio content, a raw
// capture against an edited cut, and reports which spans of the reference
// survived, moved, or were cut.
package cuesync

import (
	"context"
	"fmt"
	"path/filepath"

	"cuesync/internal/align"
	"cuesync/internal/audio"
	"cuesync/pkg/logger"
)

type cueService struct {
	opts    *Options
	decoder Decoder
	storage Storage
	log     Logger
}

// NewService builds a Service from the given options. With no options it
// decodes through ffmpeg at 11025 Hz and archives runs in cuesync.sqlite3
// next to the working directory.
func NewService(opts ...Option) (Service, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.Logger == nil {
		o.Logger = logger.GetLogger()
	}

	decoder := o.Decoder
	if decoder == nil {
		decoder = ffmpegDecoder{}
	}

	var stor Storage
	if o.Storage != nil {
		stor = o.Storage
	} else if o.Archive {
		var err error
		stor, err = NewSQLiteStorage(o.DBPath)
		if err != nil {
			return nil, err
		}
	}

	return &cueService{opts: o, decoder: decoder, storage: stor, log: o.Logger}, nil
}

// AlignFiles decodes both files, aligns target against reference, and
// archives the result unless the archive is disabled.
func (s *cueService) AlignFiles(ctx context.Context, referencePath, targetPath string) (*Result, error) {
	s.log.Info("Aligning %s against %s", filepath.Base(targetPath), filepath.Base(referencePath))

	ref, err := s.decode(ctx, referencePath)
	if err != nil {
		return nil, fmt.Errorf("decoding reference: %w", err)
	}
	target, err := s.decode(ctx, targetPath)
	if err != nil {
		return nil, fmt.Errorf("decoding target: %w", err)
	}
	s.log.Debug("Decoded reference %.1fs, target %.1fs at %d Hz",
		ref.Duration().Seconds(), target.Duration().Seconds(), ref.SampleRate())

	aligner, err := align.New(s.opts.alignConfig(), progressShim{s.opts.Progress})
	if err != nil {
		return nil, err
	}
	alignment, stats, err := aligner.Align(ctx, ref, target)
	if err != nil {
		return nil, err
	}

	res := fromAlignment(alignment, stats)
	s.log.Info("Matched %.1f%% of the reference across %d segments",
		res.Coverage*100, len(res.Matched()))
	if stats.DegeneratePairs > 0 {
		s.log.Warn("%d of %d chunk pairs were silent and skipped", stats.DegeneratePairs, stats.Pairs)
	}

	if s.storage != nil {
		runID, err := s.storage.SaveRun(RunMeta{
			ReferencePath: referencePath,
			TargetPath:    targetPath,
			SampleRate:    s.opts.SampleRate,
			ChunkSeconds:  s.opts.ChunkDuration.Seconds(),
		}, res)
		if err != nil {
			return nil, fmt.Errorf("archiving run: %w", err)
		}
		res.RunID = runID
		s.log.Debug("Archived run %s", runID)
	}

	return res, nil
}

func (s *cueService) decode(ctx context.Context, path string) (*audio.Stream, error) {
	samples, rate, err := s.decoder.Decode(ctx, path, s.opts.SampleRate)
	if err != nil {
		return nil, err
	}
	return audio.NewStream(path, rate, samples)
}

func (s *cueService) GetRun(id string) (*ArchivedRun, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("run archive is disabled")
	}
	return s.storage.GetRun(id)
}

func (s *cueService) ListRuns(limit int) ([]ArchivedRun, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("run archive is disabled")
	}
	return s.storage.ListRuns(limit)
}

func (s *cueService) DeleteRun(id string) error {
	if s.storage == nil {
		return fmt.Errorf("run archive is disabled")
	}
	return s.storage.DeleteRun(id)
}

func (s *cueService) Close() error {
	if s.storage == nil {
		return nil
	}
	return s.storage.Close()
}

// ffmpegDecoder is the default Decoder; it resamples any input ffmpeg can
// read down to mono float64.
type ffmpegDecoder struct{}

func (d ffmpegDecoder) Decode(ctx context.Context, path string, sampleRate int) ([]float64, int, error) {
	stream, err := audio.DecodeFile(ctx, path, sampleRate)
	if err != nil {
		return nil, 0, err
	}
	return stream.Samples(), stream.SampleRate(), nil
}

// progressShim bridges the optional public Progress to the scheduler, which
// only ever ticks; the batch totals go through the wider interface when the
// caller provided one.
type progressShim struct {
	p Progress
}

func (s progressShim) Increment() {
	if s.p != nil {
		s.p.Increment()
	}
}

func (s progressShim) AddTotal(n int) {
	if s.p != nil {
		s.p.AddTotal(n)
	}
}
