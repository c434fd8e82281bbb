package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/patient-import/internal/inference"
	"github.com/ginjaninja78/patient-import/internal/types"
)

// Header categories checked by the Field Validator.
const (
	CategoryID   = "id"
	CategoryName = "name"
	CategoryAge  = "age"
)

// Header hints per category. Matching is case-insensitive substring.
var (
	idHints        = []string{"id", "code"}
	nameHints      = []string{"name"}
	firstNameHints = []string{"first", "given"}
	lastNameHints  = []string{"last", "family", "surname"}
	ageHints       = []string{"age", "years", "birth"}
)

// FieldReport is the outcome of ValidateHeaders.
type FieldReport struct {
	// Valid is true iff an identifier-like and a name-like column exist.
	Valid bool `json:"valid"`

	// Missing lists absent categories in check order. Age can appear here
	// without affecting Valid.
	Missing []string `json:"missing"`

	// Headers is the header set that was inspected.
	Headers []string `json:"headers"`
}

// HasAge reports whether an age-like column was found.
func (r FieldReport) HasAge() bool {
	for _, m := range r.Missing {
		if m == CategoryAge {
			return false
		}
	}
	return true
}

// Err returns a *FieldError when the report is invalid, nil otherwise.
func (r FieldReport) Err() error {
	if r.Valid {
		return nil
	}
	var required []string
	for _, m := range r.Missing {
		if m != CategoryAge {
			required = append(required, m)
		}
	}
	return &FieldError{Missing: required, Headers: r.Headers}
}

// FieldError is the fatal error returned when an input file lacks the
// columns needed to build patient records.
type FieldError struct {
	Missing []string
	Headers []string

	// Rows holds the source line numbers of rows that yielded no name.
	Rows []int
}

func (e *FieldError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required column categories: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Rows) > 0 {
		lines := make([]string, len(e.Rows))
		for i, n := range e.Rows {
			lines[i] = fmt.Sprint(n)
		}
		parts = append(parts, fmt.Sprintf("no name could be inferred on line(s) %s", strings.Join(lines, ", ")))
	}
	return strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidationFailure) true.
func (e *FieldError) Is(target error) bool {
	return target == ErrValidationFailure
}

// ValidateHeaders runs the Field Validator over the header set of the first
// data row.
//
// CHECKS:
//   - id:   a header containing "id" or "code"
//   - name: a header containing "name", or a first/given header together
//           with a last/family/surname header
//   - age:  a header containing "age", "years" or "birth" (informational)
func ValidateHeaders(headers []string) FieldReport {
	report := FieldReport{Headers: headers}

	hasID := inference.HasHeader(headers, idHints...)
	hasName := inference.HasHeader(headers, nameHints...) ||
		(inference.HasHeader(headers, firstNameHints...) && inference.HasHeader(headers, lastNameHints...))
	hasAge := inference.HasHeader(headers, ageHints...)

	if !hasID {
		report.Missing = append(report.Missing, CategoryID)
	}
	if !hasName {
		report.Missing = append(report.Missing, CategoryName)
	}
	if !hasAge {
		report.Missing = append(report.Missing, CategoryAge)
	}

	report.Valid = hasID && hasName
	return report
}

// ValidateRowNames checks that every row yields a name through the alias
// table, either a first/last pair or a full name. A single failing row makes
// the whole batch invalid.
//
// RETURNS:
//   - nil, or a *FieldError listing the line numbers of the failing rows
//     with Missing set to "name".
func ValidateRowNames(rows []types.RawRow, aliases inference.AliasTable) error {
	var failing []int
	for _, row := range rows {
		if aliases.Lookup(row, inference.FieldFirstName) != "" ||
			aliases.Lookup(row, inference.FieldLastName) != "" ||
			aliases.Lookup(row, inference.FieldFullName) != "" {
			continue
		}
		failing = append(failing, row.LineNumber)
	}

	if len(failing) == 0 {
		return nil
	}
	return &FieldError{Missing: []string{CategoryName}, Rows: failing}
}
