package driver

import (
	"sort"
	"strconv"

	"github.com/spaceferry/spaceferry/internal/state"
)

// ResumePoint decides where a halted migration restarts. First matching
// rule wins:
//
//  1. An in-flight batch resumes at that batch (it was interrupted; batch
//     import is safe to re-enter).
//  2. Any terminally failed batches resume at the lowest-numbered one.
//  3. Otherwise resume one past the highest completed batch.
//  4. If that exceeds the manifest's batch count the migration is already
//     complete; ok is false.
//
// The chosen point is a lower bound: the driver still skips batches its
// completed-set check recognizes.
func ResumePoint(s *state.State, totalBatches int) (start int, ok bool) {
	if s.CurrentBatch != "" {
		if n := batchNumber(s.CurrentBatch); n >= 1 {
			return n, true
		}
	}

	if len(s.FailedBatches) > 0 {
		numbers := make([]int, 0, len(s.FailedBatches))
		for _, f := range s.FailedBatches {
			if n := batchNumber(f.Batch); n >= 1 {
				numbers = append(numbers, n)
			}
		}
		if len(numbers) > 0 {
			sort.Ints(numbers)
			return numbers[0], true
		}
	}

	highest := 0
	for _, id := range s.CompletedBatches {
		if n := batchNumber(id); n > highest {
			highest = n
		}
	}
	next := highest + 1
	if next > totalBatches {
		return 0, false
	}
	return next, true
}

// batchNumber parses a batch identifier ("03" -> 3). Returns 0 for
// malformed ids.
func batchNumber(id string) int {
	n, err := strconv.Atoi(id)
	if err != nil || n < 1 {
		return 0
	}
	return n
}
