package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./data/patients.db", cfg.DatabasePath)
	assert.Equal(t, ",", cfg.CSVSettings.Delimiter)
	assert.Equal(t, "UTF-8", cfg.CSVSettings.Encoding)
	require.NotNil(t, cfg.CSVSettings.TrimLeadingSpace)
	assert.True(t, *cfg.CSVSettings.TrimLeadingSpace)
	assert.Equal(t, SelectNew, cfg.Selection)
	assert.True(t, cfg.ShouldArchive())
}

func TestLoadMainConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
database_path: ":memory:"
report_dir: ` + filepath.Join(dir, "reports") + `
log_level: debug
log_format: json
archive_on_commit: false
selection: clean
csv_settings:
  delimiter: ";"
  encoding: Windows-1252
aliases:
  patient_id: ["MRN", "Chart No"]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadMainConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.DatabasePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.ShouldArchive())
	assert.Equal(t, SelectClean, cfg.Selection)
	assert.Equal(t, ";", cfg.CSVSettings.Delimiter)
	assert.Equal(t, "Windows-1252", cfg.CSVSettings.Encoding)
	assert.Equal(t, []string{"MRN", "Chart No"}, cfg.Aliases["patient_id"])

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, filepath.Join(dir, "reports"))
}

func TestLoadMainConfigOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadMainConfigOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseMainConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"log level": "log_level: loud",
		"format":    "log_format: xml",
		"selection": "selection: some",
		"encoding":  "csv_settings:\n  encoding: EBCDIC",
		"aliases":   "aliases:\n  age: []",
		"yaml":      "log_level: [",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseMainConfig([]byte(data))
			assert.Error(t, err)
		})
	}
}
