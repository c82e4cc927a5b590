// Package driver executes partitioned batches against the target space:
// content model first, then assets, then entries, every remote call
// admitted through the rate gate, with per-batch retry and durable
// checkpointing. Work is strictly sequential; batch N+1 never starts
// before batch N reaches a terminal state.
package driver

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spaceferry/spaceferry/internal/cma"
	"github.com/spaceferry/spaceferry/internal/debug"
	"github.com/spaceferry/spaceferry/internal/partition"
	"github.com/spaceferry/spaceferry/internal/ratelimit"
	"github.com/spaceferry/spaceferry/internal/state"
	"github.com/spaceferry/spaceferry/internal/telemetry"
)

// Progress cadences, purely for observability.
const (
	assetProgressEvery = 10
	entryProgressEvery = 50
)

// Options configures a migration run.
type Options struct {
	OutputDir             string
	UploadAssets          bool
	SkipContentPublishing bool
	SkipExisting          bool // fetch existing resources instead of recreating
	MaxRetries            int
	RetryDelay            time.Duration
	DelayBetweenBatches   time.Duration
	PollInterval          time.Duration
	MaxPollAttempts       int
}

// Driver imports batches into the target space.
type Driver struct {
	client  *cma.Client
	limiter *ratelimit.Limiter
	store   *state.Store
	opts    Options

	// Test seam. Production uses time.Sleep.
	sleep func(time.Duration)
}

// New builds a Driver. Zero poll settings get workable defaults; the rest
// are taken as configured.
func New(client *cma.Client, limiter *ratelimit.Limiter, store *state.Store, opts Options) *Driver {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	if opts.MaxPollAttempts <= 0 {
		opts.MaxPollAttempts = 20
	}
	return &Driver{
		client:  client,
		limiter: limiter,
		store:   store,
		opts:    opts,
		sleep:   time.Sleep,
	}
}

// admit passes one remote call through the rate gate.
func (d *Driver) admit(ctx context.Context, op func(context.Context) error) error {
	return d.limiter.Admit(ctx, op)
}

// Run processes batches startFrom..TotalBatches in ascending order.
// Batches already recorded as completed are skipped, so startFrom is a
// lower bound, not an exact replay point. A batch that exhausts its
// retries is recorded failed and the run continues; Run returns an error
// only for run-level precondition failures or if any batch ended failed.
func (d *Driver) Run(ctx context.Context, manifest *partition.Manifest, startFrom int) error {
	if startFrom < 1 {
		startFrom = 1
	}

	st, err := d.store.Load()
	if err != nil {
		return err
	}

	failed := 0
	for n := startFrom; n <= manifest.TotalBatches; n++ {
		id := partition.BatchID(n)
		if st.IsCompleted(id) {
			debug.PrintNormal("Batch %s already completed, skipping\n", id)
			continue
		}

		batch, err := partition.LoadBatch(d.opts.OutputDir, n)
		if err != nil {
			// Missing batch content is a precondition failure, fatal to
			// the whole run.
			return err
		}

		completed, err := d.runBatch(ctx, st, batch)
		if err != nil {
			return err
		}
		if !completed {
			failed++
			continue
		}

		// Macro-level throttle between completed batches (not after the
		// last) to let the remote service's pools recover.
		if n < manifest.TotalBatches && d.opts.DelayBetweenBatches > 0 {
			debug.PrintNormal("Waiting %s before next batch\n", d.opts.DelayBetweenBatches)
			d.sleep(d.opts.DelayBetweenBatches)
		}
	}

	d.reportLimiterStats()

	if failed > 0 {
		return fmt.Errorf("%d of %d batches failed; completed batches are recorded in %s, resume to retry",
			failed, manifest.TotalBatches, d.store.Path())
	}
	return nil
}

// runBatch drives one batch through Pending → InFlight → Completed|Failed,
// retrying whole-batch attempts up to the configured ceiling. The returned
// error is reserved for state-persistence failures, which are fatal.
func (d *Driver) runBatch(ctx context.Context, st *state.State, batch *partition.Batch) (bool, error) {
	st.SetCurrent(batch.ID)
	if err := d.store.Save(st); err != nil {
		return false, err
	}
	debug.LogEvent(d.opts.OutputDir, "BATCH_START", batch.ID,
		fmt.Sprintf("assets=%d entries=%d", len(batch.Content.Assets), len(batch.Content.Entries)))
	debug.PrintNormal("Batch %s: %d assets, %d entries\n",
		batch.ID, len(batch.Content.Assets), len(batch.Content.Entries))

	for attempt := 1; ; attempt++ {
		err := d.importBatch(ctx, batch)
		if err == nil {
			st.MarkCompleted(batch.ID)
			if err := d.store.Save(st); err != nil {
				return false, err
			}
			debug.LogEvent(d.opts.OutputDir, "BATCH_COMPLETE", batch.ID, "")
			telemetry.CountBatch(ctx, "completed")
			return true, nil
		}

		fmt.Fprintf(os.Stderr, "Batch %s attempt %d failed: %v\n", batch.ID, attempt, err)

		if attempt > d.opts.MaxRetries {
			st.MarkFailed(batch.ID, err.Error(), time.Now().UTC())
			if saveErr := d.store.Save(st); saveErr != nil {
				return false, saveErr
			}
			debug.LogEvent(d.opts.OutputDir, "BATCH_FAILED", batch.ID, err.Error())
			telemetry.CountBatch(ctx, "failed")
			return false, nil
		}

		wait := d.opts.RetryDelay * time.Duration(attempt)
		debug.LogEvent(d.opts.OutputDir, "BATCH_RETRY", batch.ID,
			fmt.Sprintf("attempt=%d wait=%s", attempt, wait))
		debug.PrintNormal("Retrying batch %s in %s (attempt %d/%d)\n",
			batch.ID, wait, attempt+1, d.opts.MaxRetries+1)
		d.sleep(wait)
	}
}

// importBatch is one full attempt at a batch: session, content model,
// assets, entries. An error returned here unwinds to the retry wrapper;
// per-item failures are absorbed inside the item loops.
func (d *Driver) importBatch(ctx context.Context, batch *partition.Batch) error {
	if err := d.admit(ctx, d.client.Connect); err != nil {
		return fmt.Errorf("opening session to target space: %w", err)
	}

	if batch.HasContentModel() {
		if err := d.importContentModel(ctx, batch); err != nil {
			return err
		}
	}

	d.importAssets(ctx, batch)
	d.importEntries(ctx, batch)
	return nil
}

func (d *Driver) reportLimiterStats() {
	if d.limiter == nil {
		return
	}
	stats := d.limiter.Stats()
	if stats.Admitted == 0 {
		return
	}
	debug.PrintNormal("Rate gate: %d calls admitted, %d throttled, %s total wait over %s\n",
		stats.Admitted, stats.Throttled, stats.WaitTime.Round(time.Millisecond),
		stats.Elapsed.Round(time.Second))
}
