package contentgraph

import (
	"encoding/json"
	"fmt"
	"os"
)

// Export is the full exported content space: the content model plus the
// entry and asset collections.
type Export struct {
	ContentTypes     []ContentType     `json:"contentTypes"`
	Entries          []Entry           `json:"entries"`
	Assets           []Asset           `json:"assets"`
	Locales          []Locale          `json:"locales"`
	Tags             []Tag             `json:"tags"`
	EditorInterfaces []EditorInterface `json:"editorInterfaces"`
	Webhooks         []json.RawMessage `json:"webhooks"`
}

// ReadExport loads an export document from disk.
func ReadExport(path string) (*Export, error) {
	data, err := os.ReadFile(path) // #nosec G304 - operator-provided export path
	if err != nil {
		return nil, fmt.Errorf("reading export file: %w", err)
	}
	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("parsing export file %s: %w", path, err)
	}
	return &export, nil
}

// WriteExport writes an export-shaped document. Batch content files use the
// same top-level shape as the source export so downstream tooling can read
// either interchangeably.
func WriteExport(path string, export *Export) error {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling export: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}
	return nil
}
