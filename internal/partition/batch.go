package partition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spaceferry/spaceferry/internal/contentgraph"
)

// Batch is one loaded unit of migration work. Batches are written once by
// Split and only ever read afterwards.
type Batch struct {
	Number  int
	ID      string
	Dir     string
	Content *contentgraph.Export
}

// HasContentModel reports whether this batch carries the content model
// (true only for the first batch of a split).
func (b *Batch) HasContentModel() bool {
	return len(b.Content.ContentTypes) > 0 ||
		len(b.Content.Locales) > 0 ||
		len(b.Content.Tags) > 0
}

// LoadBatch reads a batch's content document from the output directory.
func LoadBatch(outputDir string, number int) (*Batch, error) {
	dir := BatchDir(outputDir, number)
	contentPath := filepath.Join(dir, ContentFileName)

	data, err := os.ReadFile(contentPath) // #nosec G304 - path from run config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("batch %s has no content document at %s (run the split step first): %w",
				BatchID(number), contentPath, err)
		}
		return nil, fmt.Errorf("reading batch %s: %w", BatchID(number), err)
	}

	var content contentgraph.Export
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("parsing batch %s content: %w", BatchID(number), err)
	}

	return &Batch{
		Number:  number,
		ID:      BatchID(number),
		Dir:     dir,
		Content: &content,
	}, nil
}
