// =============================================================================
// Patient Import - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (patient-import)
//   ├── importCmd    (patient-import import)
//   ├── validateCmd  (patient-import validate)
//   ├── listCmd      (patient-import list)
//   ├── nextCodeCmd  (patient-import next-code)
//   ├── sampleCmd    (patient-import sample)
//   └── versionCmd   (patient-import version)
//
// CONFIGURATION:
//   The root command owns the global flags (--config, --verbose). Commands
//   load the configuration and build their logger through the helpers below.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/patient-import/internal/config"
	"github.com/ginjaninja78/patient-import/internal/repository"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "patient-import",
	Short: "Patient Import - reconcile clinic exports into the patient repository",
	Long: `Patient Import reads CSV or XLSX exports from other clinic systems, maps
their loosely named columns onto patient records, and reconciles them with
the patient repository before anything is written.

Key Features:
  - Column inference from configurable alias lists
  - Canonical patient (PX-AB-0000012) and transaction (TX25-04-00009) codes
  - Duplicate detection against existing patient codes
  - Promotional bundle detection and transaction conflict reporting
  - XML review reports and per-record commit outcomes

Example Usage:
  patient-import import --file export.csv --dry-run
  patient-import import --file export.csv --select clean
  patient-import sample --rows 50 --out demo.csv`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig reads the configuration. A missing default file yields the
// defaults; a missing file named with --config is an error.
func loadConfig(cmd *cobra.Command) (*config.MainConfig, error) {
	if cmd.Flags().Changed("config") {
		return config.LoadMainConfig(cfgFile)
	}
	return config.LoadMainConfigOrDefault(cfgFile)
}

// newLogger builds the slog logger for the configured level and format.
func newLogger(cfg *config.MainConfig, w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// setup loads the configuration, prepares its directories and opens the
// repository. The caller closes the repository.
func setup(ctx context.Context, cmd *cobra.Command) (*config.MainConfig, *slog.Logger, repository.Repository, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr(), verbose)

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, nil, err
	}

	repo, err := repository.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Debug("Opened repository", "path", cfg.DatabasePath)

	return cfg, logger, repo, nil
}
