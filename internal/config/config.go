// =============================================================================
// Patient Import - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the application
// configuration. A single YAML file (config.yaml) holds repository, logging,
// parsing and alias settings.
//
// ARCHITECTURE:
//   The configuration system is designed to be:
//   - Optional: a missing default config file falls back to defaults
//   - Overridable: alias lists can be replaced per field without code changes
//   - Validated: all configurations are validated on load
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// REPOSITORY SETTINGS
	// =========================================================================

	// DatabasePath is the SQLite file backing the patient repository.
	// The special value ":memory:" selects the in-memory repository.
	// Default: "./data/patients.db"
	DatabasePath string `yaml:"database_path"`

	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputArchiveDir is where committed input files are moved.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ReportDir is where review reports and error logs are written.
	// Default: "./reports"
	ReportDir string `yaml:"report_dir"`

	// ReportFileFormat defines the review report file name.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {source}    - Input file name without extension
	// Default: "import_{timestamp}_{uuid}.xml"
	ReportFileFormat string `yaml:"report_file_format"`

	// ArchiveOnCommit moves the input file to InputArchiveDir after a
	// commit with no failures.
	// Default: true
	ArchiveOnCommit *bool `yaml:"archive_on_commit"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the slog handler: "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// IMPORT SETTINGS
	// =========================================================================

	// CSVSettings contains settings for parsing delimited input files.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// Aliases overrides the built-in alias lists. Keys are canonical field
	// names (patient_id, full_name, recent_transaction, ...).
	Aliases map[string][]string `yaml:"aliases,omitempty"`

	// Selection is the default commit selection policy.
	// Valid values: "all", "new" (skip duplicates), "clean" (skip duplicates,
	// conflicts and rows with errors)
	// Default: "new"
	Selection string `yaml:"selection"`
}

// ShouldArchive reports the effective ArchiveOnCommit value.
func (c *MainConfig) ShouldArchive() bool {
	return c.ArchiveOnCommit == nil || *c.ArchiveOnCommit
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing delimited files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields.
	// Common values: "," (comma), ";" (semicolon), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding is the character encoding of the input file.
	// Supported values: "UTF-8", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`

	// TrimLeadingSpace ignores leading white space in a field.
	// Default: true
	TrimLeadingSpace *bool `yaml:"trim_leading_space"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Selection policies.
const (
	SelectAll   = "all"
	SelectNew   = "new"
	SelectClean = "clean"
)

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	// Read the configuration file.
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseMainConfig(data)
}

// LoadMainConfigOrDefault is LoadMainConfig that falls back to Default when
// the file does not exist.
func LoadMainConfigOrDefault(configPath string) (*MainConfig, error) {
	config, err := LoadMainConfig(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// ParseMainConfig parses YAML configuration data.
func ParseMainConfig(data []byte) (*MainConfig, error) {
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply default values.
	applyMainConfigDefaults(&config)

	// Validate the configuration.
	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.DatabasePath == "" {
		config.DatabasePath = "./data/patients.db"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.ReportDir == "" {
		config.ReportDir = "./reports"
	}
	if config.ReportFileFormat == "" {
		config.ReportFileFormat = "import_{timestamp}_{uuid}.xml"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
	if config.Selection == "" {
		config.Selection = SelectNew
	}

	// CSV settings defaults.
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = "UTF-8"
	}
	if config.CSVSettings.TrimLeadingSpace == nil {
		trim := true
		config.CSVSettings.TrimLeadingSpace = &trim
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", config.LogLevel)
	}

	switch strings.ToLower(config.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", config.LogFormat)
	}

	switch config.Selection {
	case SelectAll, SelectNew, SelectClean:
	default:
		return fmt.Errorf("unknown selection policy %q", config.Selection)
	}

	switch strings.ToUpper(config.CSVSettings.Encoding) {
	case "UTF-8", "UTF8", "ISO-8859-1", "LATIN1", "WINDOWS-1252", "CP1252":
	default:
		return fmt.Errorf("unsupported encoding %q", config.CSVSettings.Encoding)
	}

	for field, candidates := range config.Aliases {
		if len(candidates) == 0 {
			return fmt.Errorf("alias override %q has no candidates", field)
		}
	}

	return nil
}

// EnsureDirectories creates the directories the configuration refers to.
func (c *MainConfig) EnsureDirectories() error {
	dirs := []string{c.InputArchiveDir, c.ReportDir}
	if c.DatabasePath != ":memory:" {
		dirs = append(dirs, filepath.Dir(c.DatabasePath))
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			// Create the directory if it doesn't exist.
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
