// =============================================================================
// Patient Import - Sample Command
// =============================================================================
//
// This file defines the 'sample' command, which writes a synthetic export
// for demos and for trying out the import command.
//
// COMMAND USAGE:
//   patient-import sample --rows 50 --out demo.csv [--seed 7] [--promo-rate 0.2]
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/patient-import/internal/sample"
)

var sampleOpts = sample.Options{Rows: 20, PromoRate: 0.15, ConflictRate: 0.05}

var sampleOut, sampleStyle string

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate a synthetic export file",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := sampleOpts
		opts.Style = sample.HeaderStyle(sampleStyle)
		return runSample(cmd.OutOrStdout(), sampleOut, opts)
	},
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().StringVar(&sampleOut, "out", "", "Output CSV path")
	sampleCmd.Flags().IntVar(&sampleOpts.Rows, "rows", sampleOpts.Rows, "Number of data rows")
	sampleCmd.Flags().Int64Var(&sampleOpts.Seed, "seed", 0, "Random seed; 0 picks one")
	sampleCmd.Flags().Float64Var(&sampleOpts.PromoRate, "promo-rate", sampleOpts.PromoRate, "Share of promotional bundle rows")
	sampleCmd.Flags().Float64Var(&sampleOpts.ConflictRate, "conflict-rate", sampleOpts.ConflictRate, "Share of rows citing another patient's transaction")
	sampleCmd.Flags().BoolVar(&sampleOpts.LegacyCodes, "legacy", false, "Write short legacy codes")
	sampleCmd.Flags().StringVar(&sampleStyle, "style", string(sample.StyleStandard), "Header layout: standard or split")
	sampleCmd.MarkFlagRequired("out")
}

func runSample(out io.Writer, path string, opts sample.Options) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	stats, err := sample.Generate(file, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %s: %d rows (%d patients, %d bundle items, %d conflicts)\n",
		path, stats.Rows, stats.Patients, stats.Bundles, stats.Conflicts)
	return file.Close()
}
