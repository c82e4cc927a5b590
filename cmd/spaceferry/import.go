package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/spaceferry/spaceferry/internal/partition"
	"github.com/spaceferry/spaceferry/internal/state"
)

var (
	importStartFrom int
	importYes       bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import batches into the target space",
	Long: `Import runs the batches produced by split against the target space,
in ascending order, one at a time. Every API call goes through the rate
gate; progress is checkpointed to the state file after each batch so an
interrupted run can be resumed.

If a prior run left a state file behind, import asks for confirmation
before continuing on top of it (pass --yes to skip the prompt).`,
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
		if store.Exists() && !importYes {
			st, err := store.Load()
			if err != nil {
				return err
			}
			if len(st.CompletedBatches) > 0 || len(st.FailedBatches) > 0 || st.CurrentBatch != "" {
				fmt.Printf("Found existing migration state at %s (%d completed, %d failed).\n",
					store.Path(), len(st.CompletedBatches), len(st.FailedBatches))
				if !confirm("Continue on top of it? Completed batches will be skipped. [y/N] ") {
					return fmt.Errorf("aborted; delete %s to start over, or run resume", store.Path())
				}
			}
		}

		d := buildDriver(cfg)
		return d.Run(cmd.Context(), manifest, importStartFrom)
	},
}

// confirm prompts on stdout and reads a line from stdin. Without a
// terminal on stdin there is nobody to answer, so it declines.
func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "stdin is not a terminal; pass --yes to proceed non-interactively")
		return false
	}
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	importCmd.Flags().IntVar(&importStartFrom, "start-from", 1,
		"Batch number to start from (completed batches are still skipped)")
	importCmd.Flags().BoolVarP(&importYes, "yes", "y", false,
		"Skip the confirmation prompt when prior state exists")
	rootCmd.AddCommand(importCmd)
}
