// =============================================================================
// Patient Import - File Manager Utility
// =============================================================================
//
// This module provides the file handling around an import run:
//   - Input archival (moving committed files out of the way)
//   - Review report naming and writing
//   - Commit error log generation
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to the archive only after a commit with no failures
//   - Archived names carry a timestamp so repeated imports never overwrite
//   - Failed files remain in their original location
//   - Error logs are created in the report directory
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/patient-import/internal/importer"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations around an import.
type FileManager struct {
	// ArchiveDir is the directory for archived input files.
	ArchiveDir string

	// ReportDir is the directory for review reports and error logs.
	ReportDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2025/04/15/20250415_093000_export.csv
	UseTimestampSubdirs bool

	// Now is the clock used for names. Default time.Now.
	Now func() time.Time

	// NewID generates the {uuid} placeholder. Default uuid.NewString.
	NewID func() string
}

// NewFileManager creates a FileManager for the given directories.
func NewFileManager(archiveDir, reportDir string) *FileManager {
	return &FileManager{
		ArchiveDir: archiveDir,
		ReportDir:  reportDir,
		Now:        time.Now,
		NewID:      uuid.NewString,
	}
}

func (fm *FileManager) now() time.Time {
	if fm.Now == nil {
		return time.Now()
	}
	return fm.Now()
}

func (fm *FileManager) newID() string {
	if fm.NewID == nil {
		return uuid.NewString()
	}
	return fm.NewID()
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath := fm.archivePath(filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

func (fm *FileManager) archivePath(filePath string) string {
	now := fm.now()
	name := now.Format("20060102_150405") + "_" + filepath.Base(filePath)

	dir := fm.ArchiveDir
	if fm.UseTimestampSubdirs {
		dir = filepath.Join(dir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}
	return filepath.Join(dir, name)
}

// =============================================================================
// REPORT FILES
// =============================================================================

// ReportFileName expands a report name format.
//
// PARAMETERS:
//   - format: The name format. Placeholders:
//       {uuid}      - A random UUID
//       {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//       {source}    - Input file name without extension
//   - source: The input file path.
//
// RETURNS:
//   - The file name, always ending in .xml.
//
// EXAMPLE:
//   format: "{source}_{timestamp}.xml"
//   source: "/in/march export.csv"
//   output: "march export_20250415_093000.xml"
func (fm *FileManager) ReportFileName(format, source string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if source == "" {
		base = "import"
	}

	result := strings.NewReplacer(
		"{uuid}", fm.newID(),
		"{timestamp}", fm.now().Format("20060102_150405"),
		"{source}", base,
	).Replace(format)

	if !strings.HasSuffix(strings.ToLower(result), ".xml") {
		result += ".xml"
	}
	return result
}

// WriteReport writes data under ReportDir and returns the full path.
func (fm *FileManager) WriteReport(name string, data []byte) (string, error) {
	if err := os.MkdirAll(fm.ReportDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(fm.ReportDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single record that failed to commit.
type ErrorLogEntry struct {
	RowNumber    int
	RecordID     string
	PatientCode  string
	ErrorMessage string
}

// EntriesFromCommit converts commit failures into log entries. rowNumbers
// maps record indices to source line numbers and may be nil.
func EntriesFromCommit(result importer.CommitResult, rowNumbers []int) []ErrorLogEntry {
	entries := make([]ErrorLogEntry, 0, len(result.Failures))
	for _, f := range result.Failures {
		entry := ErrorLogEntry{
			RecordID:     f.RecordID,
			PatientCode:  f.Code,
			ErrorMessage: f.Err.Error(),
		}
		if f.Index >= 0 && f.Index < len(rowNumbers) {
			entry.RowNumber = rowNumbers[f.Index]
		}
		entries = append(entries, entry)
	}
	return entries
}

// WriteErrorLog writes error entries to a log file in ReportDir.
//
// PARAMETERS:
//   - entries: The error entries to write.
//   - source: The input file the entries came from.
//
// RETURNS:
//   - The path to the error log file, or "" when there is nothing to log.
//   - An error if writing fails.
func (fm *FileManager) WriteErrorLog(entries []ErrorLogEntry, source string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(fm.ReportDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	now := fm.now()
	logPath := filepath.Join(fm.ReportDir, fmt.Sprintf("error_log_%s.txt", now.Format("20060102_150405")))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Patient Import - Error Log\n"+
		"Generated: %s\n"+
		"Source: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		now.Format("2006-01-02 15:04:05"),
		source,
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n", i+1)
		if entry.RowNumber > 0 {
			fmt.Fprintf(writer, "  Row Number:     %d\n", entry.RowNumber)
		}
		if entry.PatientCode != "" {
			fmt.Fprintf(writer, "  Patient Code:   %s\n", entry.PatientCode)
		}
		if entry.RecordID != "" {
			fmt.Fprintf(writer, "  Record ID:      %s\n", entry.RecordID)
		}
		fmt.Fprintf(writer, "  Message:        %s\n\n", entry.ErrorMessage)
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
