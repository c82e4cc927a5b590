// Package validate compares resource counts between the source export and
// the target space and reports per-kind pass/fail with the delta. It is a
// read-and-diff step: no repair, no mutation.
package validate

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spaceferry/spaceferry/internal/cma"
	"github.com/spaceferry/spaceferry/internal/contentgraph"
	"github.com/spaceferry/spaceferry/internal/ratelimit"
)

// Counts holds per-kind resource totals for one side of the comparison.
type Counts struct {
	ContentTypes int `yaml:"contentTypes"`
	Entries      int `yaml:"entries"`
	Assets       int `yaml:"assets"`
	Locales      int `yaml:"locales"`
	Tags         int `yaml:"tags"`
}

// CountExport tallies the source export document.
func CountExport(export *contentgraph.Export) Counts {
	return Counts{
		ContentTypes: len(export.ContentTypes),
		Entries:      len(export.Entries),
		Assets:       len(export.Assets),
		Locales:      len(export.Locales),
		Tags:         len(export.Tags),
	}
}

// CountTarget queries the target space for its totals. Every query is
// admitted through the rate gate like any other remote call.
func CountTarget(ctx context.Context, client *cma.Client, limiter *ratelimit.Limiter) (Counts, error) {
	var counts Counts
	queries := []struct {
		resource string
		dest     *int
	}{
		{"content_types", &counts.ContentTypes},
		{"entries", &counts.Entries},
		{"assets", &counts.Assets},
		{"locales", &counts.Locales},
		{"tags", &counts.Tags},
	}
	for _, q := range queries {
		err := limiter.Admit(ctx, func(ctx context.Context) error {
			total, countErr := client.Count(ctx, q.resource)
			if countErr != nil {
				return countErr
			}
			*q.dest = total
			return nil
		})
		if err != nil {
			return counts, fmt.Errorf("counting target %s: %w", q.resource, err)
		}
	}
	return counts, nil
}

// Check is one per-kind comparison. Diff is target minus source; the
// check passes only on an exact match.
type Check struct {
	Name   string `yaml:"name"`
	Source int    `yaml:"source"`
	Target int    `yaml:"target"`
	Diff   int    `yaml:"diff"`
	Passed bool   `yaml:"passed"`
}

// Report is the full validation result.
type Report struct {
	GeneratedAt time.Time `yaml:"generatedAt"`
	Checks      []Check   `yaml:"checks"`
	Passed      bool      `yaml:"passed"`
}

// Compare diffs source counts against target counts per resource kind.
func Compare(source, target Counts) *Report {
	report := &Report{GeneratedAt: time.Now().UTC(), Passed: true}
	add := func(name string, src, tgt int) {
		check := Check{
			Name:   name,
			Source: src,
			Target: tgt,
			Diff:   tgt - src,
			Passed: tgt == src,
		}
		if !check.Passed {
			report.Passed = false
		}
		report.Checks = append(report.Checks, check)
	}
	add("Content types", source.ContentTypes, target.ContentTypes)
	add("Entries", source.Entries, target.Entries)
	add("Assets", source.Assets, target.Assets)
	add("Locales", source.Locales, target.Locales)
	add("Tags", source.Tags, target.Tags)
	return report
}

// Print writes a human-readable comparison table.
func (r *Report) Print(w io.Writer) {
	for _, c := range r.Checks {
		status := "OK"
		if !c.Passed {
			status = "FAILED"
		}
		fmt.Fprintf(w, "%-14s source=%-7d target=%-7d diff=%-5d %s\n",
			c.Name, c.Source, c.Target, c.Diff, status)
	}
	if r.Passed {
		fmt.Fprintln(w, "Validation passed: target counts match the source export")
	} else {
		fmt.Fprintln(w, "Validation FAILED: see diffs above")
	}
}

// WriteYAML persists the report for later inspection.
func (r *Report) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling validation report: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing validation report: %w", err)
	}
	return nil
}
