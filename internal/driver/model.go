package driver

import (
	"context"
	"fmt"

	"github.com/spaceferry/spaceferry/internal/cma"
	"github.com/spaceferry/spaceferry/internal/contentgraph"
	"github.com/spaceferry/spaceferry/internal/debug"
	"github.com/spaceferry/spaceferry/internal/partition"
)

// importContentModel replays the schema layer: locales, tags, content
// types, editor interfaces. Only a content-type failure aborts the batch;
// everything downstream depends on the types existing.
func (d *Driver) importContentModel(ctx context.Context, batch *partition.Batch) error {
	if err := d.importLocales(ctx, batch); err != nil {
		return err
	}
	d.importTags(ctx, batch)
	if err := d.importContentTypes(ctx, batch); err != nil {
		return err
	}
	d.importEditorInterfaces(ctx, batch)
	return nil
}

// importLocales creates source locales missing from the target, checking
// existence by locale code so re-entry is idempotent.
func (d *Driver) importLocales(ctx context.Context, batch *partition.Batch) error {
	if len(batch.Content.Locales) == 0 {
		return nil
	}

	var existing []contentgraph.Locale
	err := d.admit(ctx, func(ctx context.Context) error {
		var listErr error
		existing, listErr = d.client.ListLocales(ctx)
		return listErr
	})
	if err != nil {
		return fmt.Errorf("listing target locales: %w", err)
	}

	have := make(map[string]bool, len(existing))
	for _, l := range existing {
		have[l.Code] = true
	}

	for _, locale := range batch.Content.Locales {
		if have[locale.Code] {
			debug.Logf("locale %s already present\n", locale.Code)
			continue
		}
		err := d.admit(ctx, func(ctx context.Context) error {
			_, createErr := d.client.CreateLocale(ctx, locale)
			return createErr
		})
		if err != nil {
			d.logItemError(batch, "locale", locale.Code, err)
			continue
		}
		debug.PrintNormal("Created locale %s\n", locale.Code)
	}
	return nil
}

// importTags creates tags with explicit ids, treating already-exists
// conflicts as non-fatal.
func (d *Driver) importTags(ctx context.Context, batch *partition.Batch) {
	for _, tag := range batch.Content.Tags {
		err := d.admit(ctx, func(ctx context.Context) error {
			return d.client.CreateTag(ctx, tag)
		})
		switch {
		case err == nil:
			debug.Logf("created tag %s\n", tag.Sys.ID)
		case cma.IsConflict(err):
			debug.Logf("tag %s already exists\n", tag.Sys.ID)
		default:
			d.logItemError(batch, "tag", tag.Sys.ID, err)
		}
	}
}

// importContentTypes creates and publishes every content type. A failure
// here is fatal for the batch: nothing else can import without the types.
func (d *Driver) importContentTypes(ctx context.Context, batch *partition.Batch) error {
	for i, ct := range batch.Content.ContentTypes {
		var created *contentgraph.ContentType
		err := d.admit(ctx, func(ctx context.Context) error {
			var createErr error
			created, createErr = d.client.CreateContentType(ctx, ct)
			return createErr
		})
		if err != nil {
			return fmt.Errorf("creating content type %s: %w", ct.Sys.ID, err)
		}

		if !d.opts.SkipContentPublishing {
			err = d.admit(ctx, func(ctx context.Context) error {
				return d.client.PublishContentType(ctx, created.Sys.ID, created.Sys.Version)
			})
			if err != nil {
				return fmt.Errorf("publishing content type %s: %w", ct.Sys.ID, err)
			}
		}
		debug.PrintNormal("Imported content type %s (%d/%d)\n",
			ct.Sys.ID, i+1, len(batch.Content.ContentTypes))
	}
	return nil
}

// importEditorInterfaces replays editor interface configs best-effort;
// the content is fully usable without them.
func (d *Driver) importEditorInterfaces(ctx context.Context, batch *partition.Batch) {
	for _, ei := range batch.Content.EditorInterfaces {
		ctID := ei.ContentTypeID()
		if ctID == "" {
			continue
		}

		var current *contentgraph.EditorInterface
		err := d.admit(ctx, func(ctx context.Context) error {
			var getErr error
			current, getErr = d.client.GetEditorInterface(ctx, ctID)
			return getErr
		})
		if err != nil {
			d.logItemError(batch, "editor interface", ctID, err)
			continue
		}

		err = d.admit(ctx, func(ctx context.Context) error {
			return d.client.UpdateEditorInterface(ctx, ctID, current.Sys.Version, ei)
		})
		if err != nil {
			d.logItemError(batch, "editor interface", ctID, err)
			continue
		}
		debug.Logf("updated editor interface for %s\n", ctID)
	}
}
