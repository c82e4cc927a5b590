package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadInitializesFreshState(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "migration-state.json"))

	s, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.StartedAt.IsZero() {
		t.Error("fresh state should carry a start timestamp")
	}
	if len(s.CompletedBatches) != 0 || len(s.FailedBatches) != 0 || s.CurrentBatch != "" {
		t.Errorf("fresh state not empty: %+v", s)
	}
	if store.Exists() {
		t.Error("Load must not persist the fresh record")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "migration-state.json"))

	s := &State{StartedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}
	s.MarkCompleted("01")
	s.MarkFailed("02", "content type creation failed", time.Date(2026, 2, 1, 9, 5, 0, 0, time.UTC))
	s.SetCurrent("03")

	if err := store.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.IsCompleted("01") {
		t.Error("completed batch lost")
	}
	if len(loaded.FailedBatches) != 1 || loaded.FailedBatches[0].Batch != "02" {
		t.Errorf("FailedBatches = %+v, want batch 02", loaded.FailedBatches)
	}
	if loaded.FailedBatches[0].Error != "content type creation failed" {
		t.Errorf("failure cause lost: %q", loaded.FailedBatches[0].Error)
	}
	if loaded.CurrentBatch != "03" {
		t.Errorf("CurrentBatch = %q, want 03", loaded.CurrentBatch)
	}
}

func TestMarkCompletedClearsFailureAndCurrent(t *testing.T) {
	s := &State{}
	s.MarkFailed("02", "flaky", time.Now())
	s.SetCurrent("02")

	s.MarkCompleted("02")

	if len(s.FailedBatches) != 0 {
		t.Errorf("failure record should be removed on successful re-attempt: %+v", s.FailedBatches)
	}
	if s.CurrentBatch != "" {
		t.Errorf("in-flight marker should be cleared, got %q", s.CurrentBatch)
	}
	if !s.IsCompleted("02") {
		t.Error("batch not marked completed")
	}
}

func TestMarkCompletedIsIdempotent(t *testing.T) {
	s := &State{}
	s.MarkCompleted("01")
	s.MarkCompleted("01")

	if len(s.CompletedBatches) != 1 {
		t.Errorf("CompletedBatches = %v, want single entry", s.CompletedBatches)
	}
}

func TestMarkFailedReplacesEarlierFailure(t *testing.T) {
	s := &State{}
	s.MarkFailed("04", "first cause", time.Now())
	s.MarkFailed("04", "second cause", time.Now())

	if len(s.FailedBatches) != 1 {
		t.Fatalf("FailedBatches = %+v, want one record", s.FailedBatches)
	}
	if s.FailedBatches[0].Error != "second cause" {
		t.Errorf("failure cause = %q, want second cause", s.FailedBatches[0].Error)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "migration-state.json"))

	if err := store.Save(&State{StartedAt: time.Now()}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if strings.Contains(f.Name(), ".tmp.") {
			t.Errorf("temp file left behind: %s", f.Name())
		}
	}
}

func TestLoadRejectsCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migration-state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewStore(path).Load(); err == nil {
		t.Error("corrupt state file should fail loudly, not reset progress")
	}
}
