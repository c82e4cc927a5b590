package partition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestFileName is the manifest written at the root of the output dir.
const ManifestFileName = "manifest.json"

// BatchSummary describes one produced batch.
type BatchSummary struct {
	Number          int    `json:"number"`
	ID              string `json:"id"`
	AssetCount      int    `json:"assetCount"`
	EntryCount      int    `json:"entryCount"`
	HasContentModel bool   `json:"hasContentModel"`
}

// Manifest summarizes a whole split run: per-batch counts plus run totals.
type Manifest struct {
	CreatedAt    time.Time      `json:"createdAt"`
	BatchSize    int            `json:"batchSize"`
	TotalBatches int            `json:"totalBatches"`
	TotalAssets  int            `json:"totalAssets"`
	TotalEntries int            `json:"totalEntries"`
	Batches      []BatchSummary `json:"batches"`
}

// WriteManifest writes the manifest atomically (write temp, then rename).
func WriteManifest(outputDir string, manifest *Manifest) error {
	manifestPath := filepath.Join(outputDir, ManifestFileName)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tempFile, err := os.CreateTemp(outputDir, ManifestFileName+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		_ = tempFile.Close()    // Best effort: may already be closed before rename
		_ = os.Remove(tempPath) // Best effort: cleanup temp file; may already be renamed
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	// Close before rename (required on Windows; double-close in defer is harmless)
	_ = tempFile.Close()

	if err := os.Rename(tempPath, manifestPath); err != nil {
		return fmt.Errorf("failed to replace manifest file: %w", err)
	}

	return nil
}

// LoadManifest reads the manifest from the output directory.
func LoadManifest(outputDir string) (*Manifest, error) {
	manifestPath := filepath.Join(outputDir, ManifestFileName)

	data, err := os.ReadFile(manifestPath) // #nosec G304 - path from run config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no manifest at %s (run the split step first): %w", manifestPath, err)
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &manifest, nil
}

// Summary returns the manifest record for a 1-indexed batch number.
func (m *Manifest) Summary(number int) (BatchSummary, bool) {
	for _, b := range m.Batches {
		if b.Number == number {
			return b, true
		}
	}
	return BatchSummary{}, false
}
