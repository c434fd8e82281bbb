// =============================================================================
// Patient Import - Import Command
// =============================================================================
//
// This file defines the 'import' command, which runs the whole pipeline for
// one export file.
//
// COMMAND USAGE:
//   patient-import import --file F [flags]
//
// FLAGS:
//   --file        : The CSV or XLSX export to import (required)
//   --dry-run     : Analyze and print the summary without writing anything
//   --select      : Selection policy: all, new or clean (default from config)
//   --skip-index  : 0-based record indices to leave out of the commit
//   --overwrite   : Duplicates replace the stored record with the same code
//
// PROCESSING PIPELINE:
//   1. Load configuration and open the repository
//   2. Parse the file and analyze it against the repository snapshot
//   3. Apply the selection policy and skips
//   4. Commit the selected records
//   5. Write the XML review report (and an error log on failures)
//   6. Archive the input file when every selected record was written
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/patient-import/internal/config"
	"github.com/ginjaninja78/patient-import/internal/importer"
	"github.com/ginjaninja78/patient-import/internal/report"
	"github.com/ginjaninja78/patient-import/internal/repository"
	"github.com/ginjaninja78/patient-import/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var importOpts importOptions

type importOptions struct {
	File        string
	DryRun      bool
	Selection   string
	SkipIndices []int
	Overwrite   bool
}

// =============================================================================
// IMPORT COMMAND DEFINITION
// =============================================================================

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Analyze an export file and commit its records",
	Long: `The import command parses an export, infers its columns, normalizes every
row into a patient record and reconciles the batch with the repository.

A file with no identifier or name column, or with a row that yields no name,
is rejected as a whole and nothing is written.

On commit:
  - Each selected record is written on its own; failures do not stop the rest
  - With --overwrite, duplicates are selected and replace the stored record
    that has the same code instead of being skipped
  - An XML review report is placed in the report directory
  - Failed records are listed in an error log next to the report
  - The input file is archived only if no record failed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, logger, repo, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		defer repo.Close()

		return runImport(ctx, cmd.OutOrStdout(), cfg, logger, repo, importOpts)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importOpts.File, "file", "", "Path to the CSV or XLSX export")
	importCmd.Flags().BoolVar(&importOpts.DryRun, "dry-run", false, "Analyze only; write nothing")
	importCmd.Flags().StringVar(&importOpts.Selection, "select", "", "Selection policy: all, new or clean")
	importCmd.Flags().IntSliceVar(&importOpts.SkipIndices, "skip-index", nil, "0-based record indices to skip")
	importCmd.Flags().BoolVar(&importOpts.Overwrite, "overwrite", false, "Replace stored records that share a code with a duplicate")
	importCmd.MarkFlagRequired("file")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runImport orchestrates one import.
func runImport(ctx context.Context, out io.Writer, cfg *config.MainConfig, logger importer.Logger, repo repository.Repository, opts importOptions) error {
	// =========================================================================
	// STEP 1: ANALYZE
	// =========================================================================

	aliases, err := importer.AliasesFromConfig(cfg)
	if err != nil {
		return err
	}
	engine := importer.NewEngine(importer.WithAliases(aliases), importer.WithLogger(logger))

	analysis, err := engine.ImportFile(ctx, opts.File, cfg.CSVSettings, repo)
	if err != nil {
		return fmt.Errorf("import of %s rejected: %w", opts.File, err)
	}

	// =========================================================================
	// STEP 2: SELECT
	// =========================================================================

	session := importer.NewSession(analysis, logger)

	policy := opts.Selection
	if policy == "" {
		policy = cfg.Selection
	}
	if err := session.ApplyPolicy(policy); err != nil {
		return err
	}
	if opts.Overwrite && len(analysis.Duplicates) > 0 {
		if err := session.Overwrite(ctx, repo, analysis.Duplicates.Sorted()...); err != nil {
			return err
		}
	}
	for _, i := range opts.SkipIndices {
		if i < 0 || i >= len(analysis.Records) {
			return fmt.Errorf("skip index %d out of range (0-%d)", i, len(analysis.Records)-1)
		}
	}
	session.Deselect(opts.SkipIndices...)
	selected := session.Selected()

	if opts.DryRun {
		fmt.Fprint(out, report.Summary(analysis, nil))
		fmt.Fprintf(out, "\nSelected %d of %d records (%s). Dry run: nothing written.\n",
			len(selected), len(analysis.Records), policy)
		return nil
	}

	// =========================================================================
	// STEP 3: COMMIT
	// =========================================================================

	result := session.Commit(ctx, repo)
	fmt.Fprint(out, report.Summary(analysis, &result))

	// =========================================================================
	// STEP 4: REPORT AND ARCHIVE
	// =========================================================================

	fm := utils.NewFileManager(cfg.InputArchiveDir, cfg.ReportDir)

	options := report.DefaultOptions()
	options.Selected = selected
	options.Commit = &result
	xmlReport, err := report.GenerateWithOptions(analysis, options)
	if err != nil {
		return err
	}
	reportPath, err := fm.WriteReport(fm.ReportFileName(cfg.ReportFileFormat, opts.File), xmlReport)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Report: %s\n", reportPath)

	if !result.OK() {
		logPath, err := fm.WriteErrorLog(utils.EntriesFromCommit(result, analysis.RowNumbers), opts.File)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Error log: %s\n", logPath)
		return fmt.Errorf("%d of %d selected record(s) failed to commit", len(result.Failures), len(selected))
	}

	if cfg.ShouldArchive() {
		archived, err := fm.ArchiveInputFile(opts.File)
		if err != nil {
			return err
		}
		logger.Info("Archived input", "from", opts.File, "to", archived)
		fmt.Fprintf(out, "Archived: %s\n", archived)
	}

	return nil
}
