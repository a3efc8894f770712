package cuesync

import "context"

// Service is the library's entry point: align two recordings and manage the
// archive of past runs.
type Service interface {
	AlignFiles(ctx context.Context, referencePath, targetPath string) (*Result, error)
	GetRun(id string) (*ArchivedRun, error)
	ListRuns(limit int) ([]ArchivedRun, error)
	DeleteRun(id string) error
	Close() error
}

// Decoder turns an audio file into mono float64 samples at the requested
// rate. The default implementation shells out to ffmpeg.
type Decoder interface {
	Decode(ctx context.Context, path string, sampleRate int) (samples []float64, rate int, err error)
}

// Storage archives alignment runs.
type Storage interface {
	SaveRun(meta RunMeta, res *Result) (string, error)
	GetRun(id string) (*ArchivedRun, error)
	ListRuns(limit int) ([]ArchivedRun, error)
	DeleteRun(id string) error
	Close() error
}

// RunMeta is the context archived alongside a result.
type RunMeta struct {
	ReferencePath string
	TargetPath    string
	SampleRate    int
	ChunkSeconds  float64
}

// Logger is the leveled logging surface the service writes to.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Progress receives job counts and completion ticks during a run.
// Implementations must be safe for concurrent use.
type Progress interface {
	AddTotal(n int)
	Increment()
}
