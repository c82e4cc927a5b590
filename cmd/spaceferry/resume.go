package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spaceferry/spaceferry/internal/debug"
	"github.com/spaceferry/spaceferry/internal/driver"
	"github.com/spaceferry/spaceferry/internal/partition"
	"github.com/spaceferry/spaceferry/internal/state"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue a halted or partially failed migration",
	Long: `Resume inspects the migration state file and restarts the run at the
right place: the batch that was in flight when the process stopped, the
lowest-numbered failed batch, or the batch after the highest completed
one. Completed batches are never re-imported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateImport(); err != nil {
			return err
		}

		manifest, err := partition.LoadManifest(cfg.OutputDir)
		if err != nil {
			return err
		}

		store := state.NewStore(cfg.StatePath())
		if !store.Exists() {
			return fmt.Errorf("no migration state at %s; nothing to resume (run import first)", store.Path())
		}
		st, err := store.Load()
		if err != nil {
			return err
		}

		start, ok := driver.ResumePoint(st, manifest.TotalBatches)
		if !ok {
			debug.PrintNormal("Migration already complete: all %d batches recorded in %s\n",
				manifest.TotalBatches, store.Path())
			return nil
		}

		debug.PrintNormal("Resuming from batch %s (%d completed, %d failed so far)\n",
			partition.BatchID(start), len(st.CompletedBatches), len(st.FailedBatches))

		d := buildDriver(cfg)
		return d.Run(cmd.Context(), manifest, start)
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
