package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spaceferry/spaceferry/internal/contentgraph"
	"github.com/spaceferry/spaceferry/internal/validate"
)

const validationReportName = "validation-report.yaml"

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compare source export counts against the target space",
	Long: `Validate counts content types, entries, assets, locales, and tags in
the source export document and in the target space, and reports the
per-kind difference. A report is also written next to the batches as
` + validationReportName + `. The command exits non-zero when any count
differs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.ExportFile == "" {
			return fmt.Errorf("config: exportFile is required for validate")
		}
		if err := cfg.ValidateImport(); err != nil {
			return err
		}

		export, err := contentgraph.ReadExport(cfg.ExportFile)
		if err != nil {
			return err
		}
		source := validate.CountExport(export)

		client, limiter := buildSession(cfg)
		target, err := validate.CountTarget(cmd.Context(), client, limiter)
		if err != nil {
			return err
		}

		report := validate.Compare(source, target)
		report.Print(os.Stdout)

		reportPath := filepath.Join(cfg.OutputDir, validationReportName)
		if err := report.WriteYAML(reportPath); err != nil {
			return err
		}
		fmt.Printf("Report written to %s\n", reportPath)

		if !report.Passed {
			return fmt.Errorf("validation failed: target counts do not match the source export")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
