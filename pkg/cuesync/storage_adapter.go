package cuesync

import (
	"fmt"

	"cuesync/internal/align"
	"cuesync/internal/storage"
)

// sqliteStorage adapts the internal sqlite client to the Storage interface.
type sqliteStorage struct {
	client *storage.DBClient
}

// NewSQLiteStorage opens (or creates) the run archive at dbPath. An empty
// path falls back to CUESYNC_DB_PATH, then to the default file in the
// working directory.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	var (
		client *storage.DBClient
		err    error
	)
	if dbPath == "" {
		client, err = storage.NewDBClient()
	} else {
		client, err = storage.NewDBClientWithPath(dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	return &sqliteStorage{client: client}, nil
}

func (s *sqliteStorage) SaveRun(meta RunMeta, res *Result) (string, error) {
	return s.client.SaveRun(storage.RunMeta{
		ReferencePath: meta.ReferencePath,
		TargetPath:    meta.TargetPath,
		SampleRate:    meta.SampleRate,
		ChunkSeconds:  meta.ChunkSeconds,
		Stats: align.Stats{
			RefChunks:       res.Stats.RefChunks,
			TargetChunks:    res.Stats.TargetChunks,
			Pairs:           res.Stats.Pairs,
			DegeneratePairs: res.Stats.DegeneratePairs,
		},
	}, toAlignment(res))
}

func (s *sqliteStorage) GetRun(id string) (*ArchivedRun, error) {
	run, err := s.client.GetRun(id)
	if err != nil {
		return nil, err
	}
	return fromRun(run, true), nil
}

func (s *sqliteStorage) ListRuns(limit int) ([]ArchivedRun, error) {
	runs, err := s.client.ListRuns(limit)
	if err != nil {
		return nil, err
	}
	out := make([]ArchivedRun, 0, len(runs))
	for i := range runs {
		out = append(out, *fromRun(&runs[i], false))
	}
	return out, nil
}

func (s *sqliteStorage) DeleteRun(id string) error {
	return s.client.DeleteRun(id)
}

func (s *sqliteStorage) Close() error {
	return s.client.Close()
}
