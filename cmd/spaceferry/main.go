// spaceferry migrates content spaces between environments of a hosted
// content-management backend without tripping its request-rate ceilings.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spaceferry/spaceferry/internal/debug"
	"github.com/spaceferry/spaceferry/internal/telemetry"
)

// version is overridden at release time via -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath  string
	verboseFlag bool
	quietFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "spaceferry",
	Short: "Rate-governed content space migration",
	Long: `spaceferry migrates assets, entries, and content-model metadata between
two spaces of a hosted content-management backend.

The migration runs in dependency-respecting batches, with every API call
admitted through a dual token-bucket rate gate (per-second and per-hour),
durable per-batch checkpointing, and resume support after interruption.

Typical flow:
  spaceferry split       # partition the source export into batches
  spaceferry import      # import batches into the target space
  spaceferry resume      # continue a halted or partially failed run
  spaceferry validate    # compare source and target resource counts`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "migration.yaml",
		"Migration configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false,
		"Suppress non-essential output")
}

func main() {
	// Signal-aware context: an operator interrupt cancels in-flight HTTP
	// calls; the state file keeps whatever was last persisted, which
	// resume recovers from.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := telemetry.Init(ctx, "spaceferry", version); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: telemetry init failed: %v\n", err)
	}
	defer telemetry.Shutdown(context.Background())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		telemetry.Shutdown(context.Background())
		os.Exit(1)
	}
}
