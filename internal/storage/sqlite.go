package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cuesync/internal/align"
	"cuesync/pkg/utils"
)

const DefaultDBFile = "cuesync.sqlite3"
const errDBClientNil = "db client is nil"

// DBClient archives alignment runs in a local sqlite database so past runs
// can be listed, re-inspected, and compared without re-aligning.
type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Run is one archived alignment run.
type Run struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	ReferencePath   string `gorm:"index:idx_run_reference" json:"reference_path"`
	TargetPath      string `gorm:"index:idx_run_target" json:"target_path"`
	SampleRate      int    `json:"sample_rate"`
	ChunkSeconds    float64
	Coverage        float64
	RefChunks       int
	TargetChunks    int
	Pairs           int
	DegeneratePairs int
	CreatedAt       time.Time
	Segments        []SegmentRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// SegmentRecord is one segment of an archived run, in run order.
type SegmentRecord struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	RunID          string `gorm:"type:varchar(36);index:idx_segment_run"`
	Position       int
	Kind           string
	RefStartSec    float64
	RefEndSec      float64
	TargetStartSec float64
	TargetEndSec   float64
	Confidence     float64
}

// NewDBClient opens the database at CUESYNC_DB_PATH, falling back to
// DefaultDBFile in the working directory.
func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("CUESYNC_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Run{}, &SegmentRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RunMeta is the caller-supplied context stored alongside an alignment.
type RunMeta struct {
	ReferencePath string
	TargetPath    string
	SampleRate    int
	ChunkSeconds  float64
	Stats         align.Stats
}

// SaveRun archives an alignment and returns the new run's id.
func (c *DBClient) SaveRun(meta RunMeta, al *align.Alignment) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}

	run := Run{
		ID:              utils.GenerateUUID(),
		ReferencePath:   meta.ReferencePath,
		TargetPath:      meta.TargetPath,
		SampleRate:      meta.SampleRate,
		ChunkSeconds:    meta.ChunkSeconds,
		Coverage:        al.Coverage(),
		RefChunks:       meta.Stats.RefChunks,
		TargetChunks:    meta.Stats.TargetChunks,
		Pairs:           meta.Stats.Pairs,
		DegeneratePairs: meta.Stats.DegeneratePairs,
		Segments:        make([]SegmentRecord, 0, len(al.Segments)),
	}
	for i, seg := range al.Segments {
		run.Segments = append(run.Segments, SegmentRecord{
			Position:       i,
			Kind:           seg.Kind.String(),
			RefStartSec:    seg.Ref.Start.Seconds(),
			RefEndSec:      seg.Ref.End.Seconds(),
			TargetStartSec: seg.Target.Start.Seconds(),
			TargetEndSec:   seg.Target.End.Seconds(),
			Confidence:     seg.Confidence,
		})
	}

	if err := c.DB.Create(&run).Error; err != nil {
		return "", fmt.Errorf("creating run: %w", err)
	}
	return run.ID, nil
}

// GetRun loads an archived run with its segments in position order.
func (c *DBClient) GetRun(id string) (*Run, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var run Run
	err := c.DB.Preload("Segments", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&run, "id = ?", id).Error
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
func (c *DBClient) ListRuns(limit int) ([]Run, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	q := c.DB.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []Run
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and its segments.
func (c *DBClient) DeleteRun(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&SegmentRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Run{}).Error
	})
}

// Alignment reconstructs the archived alignment. The reference duration is
// taken from the last segment's end, which is exact because runs always tile
// the full reference timeline.
func (r *Run) Alignment() *align.Alignment {
	al := &align.Alignment{Segments: make([]align.Segment, 0, len(r.Segments))}
	for _, rec := range r.Segments {
		seg := align.Segment{
			Ref: align.Span{
				Start: secondsToDur(rec.RefStartSec),
				End:   secondsToDur(rec.RefEndSec),
			},
			Target: align.Span{
				Start: secondsToDur(rec.TargetStartSec),
				End:   secondsToDur(rec.TargetEndSec),
			},
			Confidence: rec.Confidence,
		}
		switch rec.Kind {
		case align.KindGap.String():
			seg.Kind = align.KindGap
		case align.KindDuplicate.String():
			seg.Kind = align.KindDuplicate
		default:
			seg.Kind = align.KindMatch
		}
		al.Segments = append(al.Segments, seg)
		if seg.Ref.End > al.RefDuration {
			al.RefDuration = seg.Ref.End
		}
	}
	return al
}

func secondsToDur(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
