// =============================================================================
// Patient Import - Validation Engine
// =============================================================================
//
// This module provides validation at two levels:
//   1. File-level: the Field Validator inspects the header set of the first
//      data row and decides whether the batch can be imported at all.
//   2. Record-level: normalized (or caller-edited) records are checked for
//      well-formed codes and sane field values.
//
// ERROR HANDLING:
//   - A failing Field Validator is fatal: the whole batch is aborted before
//     any row is normalized. The error is a *FieldError wrapping
//     ErrValidationFailure.
//   - Everything else is collected, not thrown. Each issue carries its row
//     number, field, value and a severity so the caller can decide.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SEVERITIES AND RULES
// =============================================================================

const (
	// SeverityError marks an issue the caller should fix before commit.
	SeverityError = "error"

	// SeverityWarning marks an issue that does not block the import.
	SeverityWarning = "warning"
)

const (
	RuleFallback         = "fallback"
	RuleUnrecognizedCode = "unrecognized_code"
	RuleDuplicate        = "duplicate"
	RuleConflict         = "conflict"
	RuleRequired         = "required"
	RuleFormat           = "format"
	RuleRange            = "range"
)

// ErrValidationFailure is matched by every fatal header validation error.
var ErrValidationFailure = errors.New("validation failure")

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// ValidationError represents a single row-level issue.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the canonical field the issue concerns.
	Field string

	// Value is the offending value, as read from the source.
	Value string

	// Rule names the check that produced the issue.
	Rule string

	// Message is a human-readable description.
	Message string

	// Index is the 0-based record index, or -1 for file-level issues.
	Index int

	// RowNumber is the 1-based line number in the source file.
	RowNumber int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Row %d, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.RowNumber,
		e.Field,
		e.Message,
		e.Value,
	)
}

// IsWarning reports whether the issue is non-blocking.
func (e *ValidationError) IsWarning() bool {
	return e.Severity == SeverityWarning
}

// Warning builds a warning-severity ValidationError.
func Warning(rule, field, value, message string) *ValidationError {
	return &ValidationError{
		Severity: SeverityWarning,
		Rule:     rule,
		Field:    field,
		Value:    value,
		Message:  message,
		Index:    -1,
	}
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult summarizes a list of issues.
type ValidationResult struct {
	// IsValid is true if there are no error-severity issues.
	IsValid bool

	// Errors contains all issues, warnings included.
	Errors []*ValidationError

	// ErrorCount is the number of error-severity issues.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int
}

// Summarize counts the issues in errs.
func Summarize(errs []*ValidationError) *ValidationResult {
	result := &ValidationResult{
		IsValid: true,
		Errors:  errs,
	}
	for _, e := range errs {
		if e.IsWarning() {
			result.WarningCount++
			continue
		}
		result.ErrorCount++
		result.IsValid = false
	}
	return result
}

// ForIndex returns the issues attached to record index i.
func ForIndex(errs []*ValidationError, i int) []*ValidationError {
	var out []*ValidationError
	for _, e := range errs {
		if e.Index == i {
			out = append(out, e)
		}
	}
	return out
}
