// =============================================================================
// Patient Import - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks an export file
// without touching the repository.
//
// COMMAND USAGE:
//   patient-import validate --file F
//
// CHECKS:
//   1. The file parses (encoding, delimiter, consistent columns)
//   2. The headers carry an identifier and a name (age is informational)
//   3. Every row yields a name
//
// The command also prints which header each field would be read from.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/patient-import/internal/config"
	"github.com/ginjaninja78/patient-import/internal/importer"
	"github.com/ginjaninja78/patient-import/internal/inference"
	"github.com/ginjaninja78/patient-import/internal/types"
	"github.com/ginjaninja78/patient-import/internal/validation"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check an export file's columns and rows without importing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runValidate(cmd.OutOrStdout(), cfg, validateFile)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFile, "file", "", "Path to the CSV or XLSX export")
	validateCmd.MarkFlagRequired("file")
}

// runValidate prints the column report for path and returns the first fatal
// problem.
func runValidate(out io.Writer, cfg *config.MainConfig, path string) error {
	aliases, err := importer.AliasesFromConfig(cfg)
	if err != nil {
		return err
	}

	data, err := importer.LoadFile(path, cfg.CSVSettings)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "File:    %s\n", path)
	fmt.Fprintf(out, "Rows:    %d\n", data.RowCount)
	fmt.Fprintf(out, "Headers: %s\n", strings.Join(data.Headers, ", "))

	fields := validation.ValidateHeaders(data.Headers)
	if len(fields.Missing) > 0 {
		fmt.Fprintf(out, "Missing: %s\n", strings.Join(fields.Missing, ", "))
	}

	fmt.Fprintln(out, "\nColumn mapping:")
	for _, m := range columnMapping(data.Headers, aliases) {
		fmt.Fprintf(out, "  %-22s %s\n", m[0], m[1])
	}

	if err := fields.Err(); err != nil {
		return err
	}
	if err := validation.ValidateRowNames(data.Rows, aliases); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nOK")
	return nil
}

// columnMapping resolves each field against the headers alone, as if every
// cell were filled.
func columnMapping(headers []string, aliases inference.AliasTable) [][2]string {
	filled := make([]string, len(headers))
	for i := range filled {
		filled[i] = "x"
	}
	row := types.NewRawRow(headers, filled, 0)

	fields := make([]string, 0, len(aliases))
	for field := range aliases {
		fields = append(fields, string(field))
	}
	sort.Strings(fields)

	mapping := make([][2]string, 0, len(fields))
	for _, field := range fields {
		header := aliases.Header(row, inference.Field(field))
		if header == "" {
			header = "-"
		}
		mapping = append(mapping, [2]string{field, header})
	}
	return mapping
}
