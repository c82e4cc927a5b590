// Package state persists the progress record for one migration run: which
// batches completed, which exhausted their retries, and which is currently
// in flight. The record is the single source of truth for resume decisions.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// DefaultFileName is the state file written inside the batch output
// directory unless the config overrides it.
const DefaultFileName = "migration-state.json"

// BatchFailure records one batch that exhausted its retries.
type BatchFailure struct {
	Batch     string    `json:"batch"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the singleton run record. Every mutation rewrites the whole
// record; there are no partial updates.
type State struct {
	StartedAt        time.Time      `json:"startedAt"`
	CompletedBatches []string       `json:"completedBatches"`
	FailedBatches    []BatchFailure `json:"failedBatches"`
	CurrentBatch     string         `json:"currentBatch,omitempty"`
}

// IsCompleted reports whether the batch already finished successfully.
func (s *State) IsCompleted(batchID string) bool {
	return slices.Contains(s.CompletedBatches, batchID)
}

// MarkCompleted records a successful batch. A prior failure record for the
// same batch is removed: a batch moves from Failed to Completed only
// through an explicit successful re-attempt.
func (s *State) MarkCompleted(batchID string) {
	if !s.IsCompleted(batchID) {
		s.CompletedBatches = append(s.CompletedBatches, batchID)
	}
	s.FailedBatches = slices.DeleteFunc(s.FailedBatches, func(f BatchFailure) bool {
		return f.Batch == batchID
	})
	if s.CurrentBatch == batchID {
		s.CurrentBatch = ""
	}
}

// MarkFailed records a batch that exhausted its retries, replacing any
// earlier failure record for the same batch.
func (s *State) MarkFailed(batchID, cause string, at time.Time) {
	s.FailedBatches = slices.DeleteFunc(s.FailedBatches, func(f BatchFailure) bool {
		return f.Batch == batchID
	})
	s.FailedBatches = append(s.FailedBatches, BatchFailure{
		Batch:     batchID,
		Error:     cause,
		Timestamp: at,
	})
	if s.CurrentBatch == batchID {
		s.CurrentBatch = ""
	}
}

// SetCurrent marks the batch now in flight.
func (s *State) SetCurrent(batchID string) {
	s.CurrentBatch = batchID
}

// Store reads and writes the state record at a fixed path. Only one driver
// process ever touches it, so atomic-write discipline is the only locking
// needed.
type Store struct {
	path string
}

// NewStore creates a store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the state file location.
func (st *Store) Path() string {
	return st.path
}

// Exists reports whether a state record has been persisted.
func (st *Store) Exists() bool {
	_, err := os.Stat(st.path)
	return err == nil
}

// Load returns the persisted state, or a fresh record stamped with the
// current time if none exists yet. The fresh record is not persisted until
// the first Save.
func (st *Store) Load() (*State, error) {
	data, err := os.ReadFile(st.path) // #nosec G304 - path from run config
	if os.IsNotExist(err) {
		return &State{StartedAt: time.Now().UTC()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", st.path, err)
	}
	return &s, nil
}

// Save rewrites the whole record via write-temp-then-rename so a reader
// never observes a half-written structure.
func (st *Store) Save(s *State) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(st.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		_ = tempFile.Close()    // Best effort: may already be closed before rename
		_ = os.Remove(tempPath) // Best effort: cleanup temp file; may already be renamed
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}

	// Close before rename (required on Windows; double-close in defer is harmless)
	_ = tempFile.Close()

	if err := os.Rename(tempPath, st.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}

	if err := os.Chmod(st.path, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to set state file permissions: %v\n", err)
	}

	return nil
}
