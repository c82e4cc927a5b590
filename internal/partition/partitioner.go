// Package partition turns one exported content space into an ordered
// sequence of self-sufficient batches: fixed-size asset slices, the entries
// that reference them (first claim wins), the content model on batch 1
// only, and a trailing overflow batch for entries that reference no asset.
package partition

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spaceferry/spaceferry/internal/contentgraph"
	"github.com/spaceferry/spaceferry/internal/debug"
)

// ContentFileName is the per-batch content document, shaped exactly like
// the source export but scoped to the batch.
const ContentFileName = "content.json"

// Options configures a split run.
type Options struct {
	BatchSize  int
	ExportFile string
	AssetsDir  string // root directory holding the exported asset binaries
	OutputDir  string
}

// Result reports what the split produced.
type Result struct {
	Manifest     *Manifest
	CopiedFiles  int
	MissingFiles int // descriptors whose binary could not be resolved on disk
}

// BatchID formats a 1-indexed batch number as its identifier. Zero-padding
// keeps directory listings in batch order.
func BatchID(number int) string {
	return fmt.Sprintf("%02d", number)
}

// BatchDir returns the directory a batch is written to.
func BatchDir(outputDir string, number int) string {
	return filepath.Join(outputDir, "batch-"+BatchID(number))
}

// Split partitions the export into batches on disk and writes the manifest.
// Every entry lands in exactly one batch; every asset occupies exactly one
// batch slot. Batches are immutable once written.
func Split(opts Options) (*Result, error) {
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}

	export, err := contentgraph.ReadExport(opts.ExportFile)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	idx := contentgraph.BuildReferenceIndex(export.Entries)
	entryByID := make(map[string]*contentgraph.Entry, len(export.Entries))
	for i := range export.Entries {
		entryByID[export.Entries[i].Sys.ID] = &export.Entries[i]
	}

	result := &Result{}
	manifest := &Manifest{
		CreatedAt:    time.Now().UTC(),
		BatchSize:    opts.BatchSize,
		TotalAssets:  len(export.Assets),
		TotalEntries: len(export.Entries),
	}

	claimed := make(map[string]bool, len(export.Entries))
	number := 0

	for start := 0; start < len(export.Assets); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(export.Assets))
		number++

		chunk := export.Assets[start:end]
		entries := claimEntries(chunk, idx, entryByID, claimed, export.Entries)

		content := &contentgraph.Export{
			Assets:  chunk,
			Entries: entries,
		}
		if number == 1 {
			content.ContentTypes = export.ContentTypes
			content.Locales = export.Locales
			content.Tags = export.Tags
			content.EditorInterfaces = export.EditorInterfaces
			content.Webhooks = export.Webhooks
		}

		if err := writeBatch(opts, number, content, manifest, result); err != nil {
			return nil, err
		}
	}

	// Entries never claimed by an asset chunk go into one final overflow
	// batch with an empty asset set.
	var leftover []contentgraph.Entry
	for i := range export.Entries {
		if !claimed[export.Entries[i].Sys.ID] {
			leftover = append(leftover, export.Entries[i])
		}
	}
	if len(leftover) > 0 {
		number++
		content := &contentgraph.Export{Entries: leftover}
		if number == 1 {
			// Export held no assets at all; the overflow batch is batch 1
			// and must still carry the content model.
			content.ContentTypes = export.ContentTypes
			content.Locales = export.Locales
			content.Tags = export.Tags
			content.EditorInterfaces = export.EditorInterfaces
			content.Webhooks = export.Webhooks
		}
		if err := writeBatch(opts, number, content, manifest, result); err != nil {
			return nil, err
		}
	}

	manifest.TotalBatches = number
	if err := WriteManifest(opts.OutputDir, manifest); err != nil {
		return nil, err
	}
	result.Manifest = manifest

	debug.Logf("partition: %d batches, %d assets, %d entries, %d missing binaries\n",
		number, manifest.TotalAssets, manifest.TotalEntries, result.MissingFiles)
	return result, nil
}

// claimEntries returns the entries referencing at least one asset in the
// chunk that no earlier batch has claimed, preserving export order.
func claimEntries(chunk []contentgraph.Asset, idx *contentgraph.ReferenceIndex,
	entryByID map[string]*contentgraph.Entry, claimed map[string]bool,
	allEntries []contentgraph.Entry) []contentgraph.Entry {

	wanted := make(map[string]bool)
	for i := range chunk {
		for _, entryID := range idx.AssetToEntries[chunk[i].Sys.ID] {
			if !claimed[entryID] {
				wanted[entryID] = true
				claimed[entryID] = true
			}
		}
	}

	var entries []contentgraph.Entry
	for i := range allEntries {
		if wanted[allEntries[i].Sys.ID] {
			entries = append(entries, allEntries[i])
		}
	}
	return entries
}

// writeBatch materializes one batch directory: the content document plus
// copies of every resolvable asset binary at the source's relative path.
func writeBatch(opts Options, number int, content *contentgraph.Export,
	manifest *Manifest, result *Result) error {

	dir := BatchDir(opts.OutputDir, number)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating batch directory: %w", err)
	}

	if err := contentgraph.WriteExport(filepath.Join(dir, ContentFileName), content); err != nil {
		return fmt.Errorf("batch %s: %w", BatchID(number), err)
	}

	for i := range content.Assets {
		for locale, file := range content.Assets[i].Fields.File {
			rel := RelativeAssetPath(file)
			if rel == "" {
				result.MissingFiles++
				debug.Logf("partition: batch %s: asset %s locale %s has no resolvable file path\n",
					BatchID(number), content.Assets[i].Sys.ID, locale)
				continue
			}
			src := filepath.Join(opts.AssetsDir, filepath.FromSlash(rel))
			dst := filepath.Join(dir, filepath.FromSlash(rel))
			if err := copyFile(src, dst); err != nil {
				result.MissingFiles++
				debug.Logf("partition: batch %s: asset %s: %v\n",
					BatchID(number), content.Assets[i].Sys.ID, err)
				continue
			}
			result.CopiedFiles++
		}
	}

	manifest.Batches = append(manifest.Batches, BatchSummary{
		Number:          number,
		ID:              BatchID(number),
		AssetCount:      len(content.Assets),
		EntryCount:      len(content.Entries),
		HasContentModel: len(content.ContentTypes) > 0,
	})
	return nil
}

// RelativeAssetPath strips an asset file descriptor's URL (or pending
// upload address) down to the host-relative path the binary was exported
// under. Returns "" when no path can be derived.
func RelativeAssetPath(file *contentgraph.AssetFile) string {
	raw := file.URL
	if raw == "" {
		raw = file.Upload
	}
	if raw == "" {
		return ""
	}
	// Protocol-relative URLs ("//host/path") are common in exports.
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 - paths derived from export
	if err != nil {
		return fmt.Errorf("opening source binary: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return fmt.Errorf("creating binary directory: %w", err)
	}
	out, err := os.Create(dst) // #nosec G304 - paths derived from export
	if err != nil {
		return fmt.Errorf("creating binary copy: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying binary: %w", err)
	}
	return out.Close()
}
