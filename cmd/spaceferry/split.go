package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spaceferry/spaceferry/internal/debug"
	"github.com/spaceferry/spaceferry/internal/partition"
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Partition the source export into migration batches",
	Long: `Split reads the exported content document, relates every entry to the
assets it references, and writes dependency-respecting batch directories
plus a manifest.

Each batch holds a fixed-size slice of assets and the entries that first
reference them; entries referencing no asset land in a final overflow
batch. Batch 1 additionally carries the content model (content types,
locales, tags, editor interfaces). Asset binaries are copied next to each
batch's content document.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateSplit(); err != nil {
			return err
		}

		result, err := partition.Split(partition.Options{
			BatchSize:  cfg.BatchSize,
			ExportFile: cfg.ExportFile,
			AssetsDir:  cfg.AssetsDir,
			OutputDir:  cfg.OutputDir,
		})
		if err != nil {
			return err
		}

		m := result.Manifest
		debug.PrintNormal("Split complete: %d batches (%d assets, %d entries) in %s\n",
			m.TotalBatches, m.TotalAssets, m.TotalEntries, cfg.OutputDir)
		for _, b := range m.Batches {
			model := ""
			if b.HasContentModel {
				model = " +content model"
			}
			debug.PrintNormal("  batch %s: %d assets, %d entries%s\n",
				b.ID, b.AssetCount, b.EntryCount, model)
		}
		if result.MissingFiles > 0 {
			fmt.Printf("Warning: %d asset binaries could not be resolved on disk (see log)\n",
				result.MissingFiles)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)
}
