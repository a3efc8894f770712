package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"cuesync/internal/align"
)

func setupTestDB(t *testing.T) *DBClient {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_cuesync.sqlite3")
	client, err := NewDBClientWithPath(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test DB client: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	return client
}

func testMeta() RunMeta {
	return RunMeta{
		ReferencePath: "/audio/raw.flac",
		TargetPath:    "/audio/cut.mp3",
		SampleRate:    11025,
		ChunkSeconds:  60,
		Stats:         align.Stats{RefChunks: 3, TargetChunks: 2, Pairs: 6},
	}
}

func testAlignment() *align.Alignment {
	return &align.Alignment{
		RefDuration: 30 * time.Second,
		Segments: []align.Segment{
			{
				Ref:        align.Span{Start: 0, End: 10 * time.Second},
				Target:     align.Span{Start: 0, End: 10 * time.Second},
				Kind:       align.KindMatch,
				Confidence: 0.95,
			},
			{
				Ref:  align.Span{Start: 10 * time.Second, End: 20 * time.Second},
				Kind: align.KindGap,
			},
			{
				Ref:        align.Span{Start: 20 * time.Second, End: 30 * time.Second},
				Target:     align.Span{Start: 10 * time.Second, End: 20 * time.Second},
				Kind:       align.KindDuplicate,
				Confidence: 0.8,
			},
		},
	}
}

func TestNewDBClientWithPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "custom.db")

	client, err := NewDBClientWithPath(dbPath)
	if err != nil {
		t.Fatalf("Failed to create DB with custom path: %v", err)
	}
	defer client.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", dbPath)
	}
}

func TestSaveAndGetRun(t *testing.T) {
	client := setupTestDB(t)

	id, err := client.SaveRun(testMeta(), testAlignment())
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if id == "" {
		t.Fatal("SaveRun returned empty id")
	}

	run, err := client.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.ReferencePath != "/audio/raw.flac" {
		t.Errorf("reference path = %q", run.ReferencePath)
	}
	if run.Pairs != 6 {
		t.Errorf("pairs = %d, want 6", run.Pairs)
	}
	if len(run.Segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(run.Segments))
	}
	if run.Segments[1].Kind != "gap" {
		t.Errorf("segment 1 kind = %q, want gap", run.Segments[1].Kind)
	}

	// Coverage is computed at save time: 20 of 30 seconds matched.
	if run.Coverage < 0.66 || run.Coverage > 0.67 {
		t.Errorf("coverage = %v, want ~0.667", run.Coverage)
	}
}

func TestRunAlignmentRoundTrip(t *testing.T) {
	client := setupTestDB(t)

	original := testAlignment()
	id, err := client.SaveRun(testMeta(), original)
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	run, err := client.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}

	restored := run.Alignment()
	if restored.RefDuration != original.RefDuration {
		t.Errorf("ref duration = %v, want %v", restored.RefDuration, original.RefDuration)
	}
	if len(restored.Segments) != len(original.Segments) {
		t.Fatalf("got %d segments, want %d", len(restored.Segments), len(original.Segments))
	}
	for i, seg := range restored.Segments {
		want := original.Segments[i]
		if seg.Kind != want.Kind {
			t.Errorf("segment %d kind = %v, want %v", i, seg.Kind, want.Kind)
		}
		if seg.Ref != want.Ref || seg.Target != want.Target {
			t.Errorf("segment %d spans = %v/%v, want %v/%v", i, seg.Ref, seg.Target, want.Ref, want.Target)
		}
	}
}

func TestListRuns(t *testing.T) {
	client := setupTestDB(t)

	for i := 0; i < 3; i++ {
		if _, err := client.SaveRun(testMeta(), testAlignment()); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	runs, err := client.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("got %d runs, want 3", len(runs))
	}

	limited, err := client.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d runs with limit 2", len(limited))
	}
}

func TestDeleteRun(t *testing.T) {
	client := setupTestDB(t)

	id, err := client.SaveRun(testMeta(), testAlignment())
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := client.DeleteRun(id); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}

	if _, err := client.GetRun(id); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("err = %v, want ErrRecordNotFound", err)
	}

	// Segments must go with the run.
	var count int64
	if err := client.DB.Model(&SegmentRecord{}).Where("run_id = ?", id).Count(&count).Error; err != nil {
		t.Fatalf("counting segments: %v", err)
	}
	if count != 0 {
		t.Errorf("%d orphaned segments left behind", count)
	}
}

func TestGetRunNotFound(t *testing.T) {
	client := setupTestDB(t)

	if _, err := client.GetRun("no-such-run"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("err = %v, want ErrRecordNotFound", err)
	}
}
