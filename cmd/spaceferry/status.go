package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spaceferry/spaceferry/internal/driver"
	"github.com/spaceferry/spaceferry/internal/partition"
	"github.com/spaceferry/spaceferry/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration progress",
	Long: `Status reads the manifest and the state file and prints where the
migration stands: completed batches, failed batches with their recorded
causes, the in-flight batch if any, and where a resume would pick up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		manifest, err := partition.LoadManifest(cfg.OutputDir)
		if err != nil {
			return err
		}

		store := state.NewStore(cfg.StatePath())
		if !store.Exists() {
			fmt.Printf("Batches: %d (%d assets, %d entries), no migration started yet\n",
				manifest.TotalBatches, manifest.TotalAssets, manifest.TotalEntries)
			return nil
		}
		st, err := store.Load()
		if err != nil {
			return err
		}

		fmt.Printf("Started:   %s\n", st.StartedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("Completed: %d/%d batches\n", len(st.CompletedBatches), manifest.TotalBatches)
		if st.CurrentBatch != "" {
			fmt.Printf("In flight: batch %s\n", st.CurrentBatch)
		}
		for _, f := range st.FailedBatches {
			fmt.Printf("Failed:    batch %s at %s: %s\n",
				f.Batch, f.Timestamp.Format("15:04:05"), f.Error)
		}

		if start, ok := driver.ResumePoint(st, manifest.TotalBatches); ok {
			fmt.Printf("Resume would start at batch %s\n", partition.BatchID(start))
		} else {
			fmt.Println("Migration complete")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
