package driver

import (
	"testing"
	"time"

	"github.com/spaceferry/spaceferry/internal/state"
)

func TestResumePoint(t *testing.T) {
	failure := func(id string) state.BatchFailure {
		return state.BatchFailure{Batch: id, Error: "boom", Timestamp: time.Now()}
	}

	tests := []struct {
		name      string
		st        state.State
		total     int
		wantStart int
		wantOK    bool
	}{
		{
			name:      "in-flight batch wins over everything",
			st:        state.State{CompletedBatches: []string{"01", "02"}, CurrentBatch: "03"},
			total:     5,
			wantStart: 3,
			wantOK:    true,
		},
		{
			name: "lowest failed batch before later failures",
			st: state.State{
				CompletedBatches: []string{"01", "03"},
				FailedBatches:    []state.BatchFailure{failure("04"), failure("02")},
			},
			total:     5,
			wantStart: 2,
			wantOK:    true,
		},
		{
			name:      "next after highest completed",
			st:        state.State{CompletedBatches: []string{"01", "02"}},
			total:     5,
			wantStart: 3,
			wantOK:    true,
		},
		{
			name:      "fresh state starts at batch 1",
			st:        state.State{},
			total:     3,
			wantStart: 1,
			wantOK:    true,
		},
		{
			name:      "everything completed reports done",
			st:        state.State{CompletedBatches: []string{"01", "02", "03"}},
			total:     3,
			wantStart: 0,
			wantOK:    false,
		},
		{
			name:      "malformed current marker falls through",
			st:        state.State{CurrentBatch: "garbage", CompletedBatches: []string{"01"}},
			total:     3,
			wantStart: 2,
			wantOK:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, ok := ResumePoint(&tt.st, tt.total)
			if start != tt.wantStart || ok != tt.wantOK {
				t.Errorf("ResumePoint = (%d, %v), want (%d, %v)",
					start, ok, tt.wantStart, tt.wantOK)
			}
		})
	}
}

func TestPollUntil(t *testing.T) {
	var slept []time.Duration
	sleep := func(d time.Duration) { slept = append(slept, d) }

	// Ready on the third attempt: two sleeps, no more.
	calls := 0
	result, err := pollUntil(5, time.Second, sleep, func() (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil || result != PollReady {
		t.Errorf("pollUntil = (%v, %v), want Ready", result, err)
	}
	if calls != 3 || len(slept) != 2 {
		t.Errorf("calls = %d, sleeps = %d; want 3 and 2", calls, len(slept))
	}

	// Attempt budget exhausted.
	slept = nil
	result, err = pollUntil(4, time.Second, sleep, func() (bool, error) { return false, nil })
	if err != nil || result != PollGaveUp {
		t.Errorf("pollUntil = (%v, %v), want GaveUp", result, err)
	}
	if len(slept) != 3 {
		t.Errorf("sleeps = %d, want 3 (no sleep after final attempt)", len(slept))
	}
}
