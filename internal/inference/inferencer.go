// =============================================================================
// Patient Import - Column Inferencer
// =============================================================================
//
// The column inferencer reads one semantic value out of a RawRow whose
// headers are not under our control.
//
// MATCHING PHASES:
//   1. Exact: for each candidate in priority order, every header is compared
//      case-insensitively (after trimming). The first non-empty cell wins.
//   2. Substring: only if phase 1 found nothing, for each candidate in order,
//      every header that contains the candidate (case-insensitive) is tried.
//
// An exact match always beats a substring match, regardless of where the
// candidates sit in the list.
//
// =============================================================================

package inference

import (
	"strings"

	"github.com/ginjaninja78/patient-import/internal/types"
)

// Infer returns the trimmed value of the best matching column, or "" when no
// header matches or every matching cell is blank.
func Infer(row types.RawRow, candidates []string) string {
	return InferWithExclusions(row, candidates, nil)
}

// InferWithExclusions is Infer with a list of substrings that disqualify a
// header during the substring phase.
func InferWithExclusions(row types.RawRow, candidates, exclude []string) string {
	_, value := match(row, candidates, exclude)
	return value
}

// match returns the header and trimmed value selected by the two phases.
func match(row types.RawRow, candidates, exclude []string) (string, string) {
	// Phase 1: exact matches.
	for _, candidate := range candidates {
		want := normalizeHeader(candidate)
		if want == "" {
			continue
		}
		for _, header := range row.Headers {
			if normalizeHeader(header) != want {
				continue
			}
			if value := strings.TrimSpace(row.Cells[header]); value != "" {
				return header, value
			}
		}
	}

	// Phase 2: substring matches.
	for _, candidate := range candidates {
		want := normalizeHeader(candidate)
		if want == "" {
			continue
		}
		for _, header := range row.Headers {
			normalized := normalizeHeader(header)
			if !strings.Contains(normalized, want) || excluded(normalized, exclude) {
				continue
			}
			if value := strings.TrimSpace(row.Cells[header]); value != "" {
				return header, value
			}
		}
	}

	return "", ""
}

// HasHeader reports whether any header of row contains one of the
// candidates, ignoring cell values.
func HasHeader(headers []string, candidates ...string) bool {
	for _, header := range headers {
		normalized := normalizeHeader(header)
		for _, candidate := range candidates {
			if strings.Contains(normalized, normalizeHeader(candidate)) {
				return true
			}
		}
	}
	return false
}

func excluded(header string, exclude []string) bool {
	for _, term := range exclude {
		if term != "" && strings.Contains(header, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
