package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spaceferry/spaceferry/internal/cma"
	"github.com/spaceferry/spaceferry/internal/contentgraph"
	"github.com/spaceferry/spaceferry/internal/debug"
	"github.com/spaceferry/spaceferry/internal/partition"
	"github.com/spaceferry/spaceferry/internal/telemetry"
)

// importAssets runs the asset pipeline for every asset in the batch.
// Failures are isolated per asset; the loop always reaches the end.
func (d *Driver) importAssets(ctx context.Context, batch *partition.Batch) {
	total := len(batch.Content.Assets)
	for i := range batch.Content.Assets {
		asset := &batch.Content.Assets[i]
		if err := d.importAsset(ctx, asset); err != nil {
			d.logItemError(batch, "asset", asset.Sys.ID, err)
			telemetry.CountItem(ctx, "asset", "error")
		} else {
			telemetry.CountItem(ctx, "asset", "ok")
		}
		if (i+1)%assetProgressEvery == 0 || i+1 == total {
			debug.PrintNormal("  assets: %d/%d\n", i+1, total)
		}
	}
}

// importAsset creates (or fetches) one asset, triggers per-locale file
// processing, polls until every descriptor resolves, then publishes.
// Publishing is skipped when processing gave up within the attempt budget
// or when publishing is disabled.
func (d *Driver) importAsset(ctx context.Context, asset *contentgraph.Asset) error {
	target, err := d.createOrFetchAsset(ctx, asset)
	if err != nil {
		return err
	}

	if !d.opts.UploadAssets {
		return nil
	}

	for locale := range asset.Fields.File {
		locale := locale
		err := d.admit(ctx, func(ctx context.Context) error {
			return d.client.ProcessAsset(ctx, target.Sys.ID, target.Sys.Version, locale)
		})
		if err != nil {
			return fmt.Errorf("processing file for locale %s: %w", locale, err)
		}
	}

	processed, result, err := d.waitForProcessing(ctx, target.Sys.ID)
	if err != nil {
		return err
	}
	if result == PollGaveUp {
		debug.Logf("asset %s: processing did not finish within %d polls, leaving unpublished\n",
			asset.Sys.ID, d.opts.MaxPollAttempts)
		return nil
	}

	if d.opts.SkipContentPublishing {
		return nil
	}
	err = d.admit(ctx, func(ctx context.Context) error {
		return d.client.PublishAsset(ctx, processed.Sys.ID, processed.Sys.Version)
	})
	if err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	return nil
}

func (d *Driver) createOrFetchAsset(ctx context.Context, asset *contentgraph.Asset) (*contentgraph.Asset, error) {
	if d.opts.SkipExisting {
		var existing *contentgraph.Asset
		err := d.admit(ctx, func(ctx context.Context) error {
			var getErr error
			existing, getErr = d.client.GetAsset(ctx, asset.Sys.ID)
			return getErr
		})
		if err == nil {
			return existing, nil
		}
		if !cma.IsNotFound(err) {
			return nil, err
		}
	}

	var created *contentgraph.Asset
	err := d.admit(ctx, func(ctx context.Context) error {
		var createErr error
		created, createErr = d.client.CreateAsset(ctx, *asset)
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("creating: %w", err)
	}
	return created, nil
}

// waitForProcessing polls the asset until every per-locale descriptor
// reports a resolved URL, at a fixed interval up to the attempt ceiling.
// Each poll is an admitted call.
func (d *Driver) waitForProcessing(ctx context.Context, assetID string) (*contentgraph.Asset, PollResult, error) {
	var latest *contentgraph.Asset

	result, err := pollUntil(d.opts.MaxPollAttempts, d.opts.PollInterval, d.sleep, func() (bool, error) {
		err := d.admit(ctx, func(ctx context.Context) error {
			var getErr error
			latest, getErr = d.client.GetAsset(ctx, assetID)
			return getErr
		})
		if err != nil {
			return false, fmt.Errorf("polling processing state: %w", err)
		}
		for _, file := range latest.Fields.File {
			if !file.Processed() {
				return false, nil
			}
		}
		return true, nil
	})
	return latest, result, err
}

// importEntries creates and publishes every entry in the batch, one at a
// time, with per-entry error isolation.
func (d *Driver) importEntries(ctx context.Context, batch *partition.Batch) {
	total := len(batch.Content.Entries)
	for i := range batch.Content.Entries {
		entry := &batch.Content.Entries[i]
		if err := d.importEntry(ctx, entry); err != nil {
			d.logItemError(batch, "entry", entry.Sys.ID, err)
			telemetry.CountItem(ctx, "entry", "error")
		} else {
			telemetry.CountItem(ctx, "entry", "ok")
		}
		if (i+1)%entryProgressEvery == 0 || i+1 == total {
			debug.PrintNormal("  entries: %d/%d\n", i+1, total)
		}
	}
}

func (d *Driver) importEntry(ctx context.Context, entry *contentgraph.Entry) error {
	target, err := d.createOrFetchEntry(ctx, entry)
	if err != nil {
		return err
	}

	if d.opts.SkipContentPublishing {
		return nil
	}
	err = d.admit(ctx, func(ctx context.Context) error {
		return d.client.PublishEntry(ctx, target.Sys.ID, target.Sys.Version)
	})
	if err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	return nil
}

func (d *Driver) createOrFetchEntry(ctx context.Context, entry *contentgraph.Entry) (*contentgraph.Entry, error) {
	if d.opts.SkipExisting {
		var existing *contentgraph.Entry
		err := d.admit(ctx, func(ctx context.Context) error {
			var getErr error
			existing, getErr = d.client.GetEntry(ctx, entry.Sys.ID)
			return getErr
		})
		if err == nil {
			return existing, nil
		}
		if !cma.IsNotFound(err) {
			return nil, err
		}
	}

	var created *contentgraph.Entry
	err := d.admit(ctx, func(ctx context.Context) error {
		var createErr error
		created, createErr = d.client.CreateEntry(ctx, *entry)
		return createErr
	})
	if err != nil {
		return nil, fmt.Errorf("creating: %w", err)
	}
	return created, nil
}

// logItemError records a per-item failure on stderr, in the batch-scoped
// error log, and in the run event log. Item failures never unwind past
// the item loop.
func (d *Driver) logItemError(batch *partition.Batch, kind, id string, err error) {
	msg := fmt.Sprintf("%s %s: %v", kind, id, err)
	fmt.Fprintf(os.Stderr, "Warning: batch %s: %s\n", batch.ID, msg)
	appendBatchErrorLog(batch.Dir, msg)
	debug.LogEvent(d.opts.OutputDir, "ITEM_ERROR", batch.ID, msg)
}

// appendBatchErrorLog appends a timestamped line to <batchDir>/errors.log.
func appendBatchErrorLog(dir, msg string) {
	if dir == "" {
		return
	}
	path := filepath.Join(dir, "errors.log")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // #nosec G302 G304
	if err != nil {
		return
	}
	defer file.Close()
	fmt.Fprintf(file, "%s %s\n", time.Now().UTC().Format(time.RFC3339), msg)
}
