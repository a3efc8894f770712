package cuesync

import (
	"time"

	"cuesync/internal/align"
	"cuesync/internal/audio"
)

// Options collects every knob of the service. Use the With functions rather
// than building it directly; NewService fills in the defaults.
type Options struct {
	ChunkDuration   time.Duration
	Overlap         float64
	SearchWindow    time.Duration
	ScoreThreshold  float64
	Prominence      float64
	MinPeakDistance time.Duration
	Workers         int
	MaxInFlight     int

	SampleRate int
	DBPath     string
	Archive    bool

	Decoder  Decoder
	Storage  Storage
	Logger   Logger
	Progress Progress
}

type Option func(*Options)

func WithChunkDuration(d time.Duration) Option {
	return func(o *Options) { o.ChunkDuration = d }
}

func WithOverlap(fraction float64) Option {
	return func(o *Options) { o.Overlap = fraction }
}

func WithSearchWindow(d time.Duration) Option {
	return func(o *Options) { o.SearchWindow = d }
}

func WithScoreThreshold(score float64) Option {
	return func(o *Options) { o.ScoreThreshold = score }
}

func WithProminence(p float64) Option {
	return func(o *Options) { o.Prominence = p }
}

func WithMinPeakDistance(d time.Duration) Option {
	return func(o *Options) { o.MinPeakDistance = d }
}

func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithMaxInFlight caps how many reference chunks are buffered per dispatch
// batch. The default is twice the worker count.
func WithMaxInFlight(n int) Option {
	return func(o *Options) { o.MaxInFlight = n }
}

func WithSampleRate(rate int) Option {
	return func(o *Options) { o.SampleRate = rate }
}

func WithDBPath(path string) Option {
	return func(o *Options) { o.DBPath = path }
}

// WithoutArchive disables the run archive entirely; no database is opened.
func WithoutArchive() Option {
	return func(o *Options) { o.Archive = false }
}

func WithDecoder(d Decoder) Option {
	return func(o *Options) { o.Decoder = d }
}

func WithStorage(s Storage) Option {
	return func(o *Options) { o.Storage = s }
}

func WithLogger(l Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithProgress(p Progress) Option {
	return func(o *Options) { o.Progress = p }
}

func defaultOptions() *Options {
	return &Options{
		ChunkDuration:   align.DefaultChunkDuration,
		SearchWindow:    align.DefaultSearchWindow,
		ScoreThreshold:  align.DefaultScoreThreshold,
		Prominence:      align.DefaultProminence,
		MinPeakDistance: align.DefaultMinPeakDistance,
		SampleRate:      audio.DefaultSampleRate,
		Archive:         true,
	}
}

func (o *Options) alignConfig() align.Config {
	return align.Config{
		ChunkDuration:   o.ChunkDuration,
		Overlap:         o.Overlap,
		SearchWindow:    o.SearchWindow,
		ScoreThreshold:  o.ScoreThreshold,
		Prominence:      o.Prominence,
		MinPeakDistance: o.MinPeakDistance,
		Workers:         o.Workers,
		MaxInFlight:     o.MaxInFlight,
	}
}
