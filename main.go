// =============================================================================
// Patient Import - Main Entry Point
// =============================================================================
//
// USAGE:
//   patient-import import      - Analyze an export and commit its records
//   patient-import validate    - Check an export's columns and rows
//   patient-import list        - List repository records
//   patient-import next-code   - Print the next free code for a prefix
//   patient-import sample      - Generate a synthetic export
//   patient-import version     - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : parsing, inference, reconciliation, repository, reports
//   - pkg/       : file handling shared by commands
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/patient-import/cmd"
)

func main() {
	cmd.Execute()
}
