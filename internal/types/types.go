// =============================================================================
// Patient Import - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - csvparser / xlsxparser (RawRow)
//   - inference, validation, importer (RawRow, PatientRecord)
//   - reconcile, repository, report (PatientRecord, IndexSet)
//
// =============================================================================

package types

import (
	"sort"
	"strings"
)

// =============================================================================
// RAW ROW
// =============================================================================

// RawRow is one data line of the input file as header -> cell pairs.
// Headers keeps the column order of the source file; Cells is keyed by the
// same header strings. Header names are whatever the source used.
type RawRow struct {
	// Headers contains the column headers in file order.
	Headers []string

	// Cells maps each header to its (untrimmed) cell value.
	Cells map[string]string

	// LineNumber is the 1-indexed line in the source file. Useful for
	// error reporting only.
	LineNumber int
}

// NewRawRow builds a RawRow from parallel header and value slices.
// Missing trailing values are stored as empty strings.
func NewRawRow(headers, values []string, lineNumber int) RawRow {
	cells := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(values) {
			cells[header] = values[i]
		} else {
			cells[header] = ""
		}
	}
	return RawRow{Headers: headers, Cells: cells, LineNumber: lineNumber}
}

// Get returns the cell stored under header.
func (r RawRow) Get(header string) string {
	return r.Cells[header]
}

// =============================================================================
// PATIENT RECORD
// =============================================================================

// Sex is the patient's recorded sex.
type Sex string

const (
	SexMale   Sex = "Male"
	SexFemale Sex = "Female"
)

// PatientRecord is the canonical record produced by the record normalizer
// and persisted by the repository.
type PatientRecord struct {
	// ID is generated and opaque. The repository upserts on it.
	ID string `json:"id" yaml:"id"`

	// Code is the canonical patient code (PX-AB-0000012).
	Code string `json:"code" yaml:"code"`

	FirstName string `json:"firstName" yaml:"first_name"`
	LastName  string `json:"lastName" yaml:"last_name"`

	// Age is never negative; 0 when unknown.
	Age int `json:"age" yaml:"age"`
	Sex Sex `json:"sex" yaml:"sex"`

	Email   string `json:"email" yaml:"email"`
	Phone   string `json:"phone" yaml:"phone"`
	Address string `json:"address" yaml:"address"`

	// CreatedDate is formatted as YYYY-MM-DD.
	CreatedDate string `json:"createdDate" yaml:"created_date"`

	// Transactions holds canonical transaction codes in first-seen order,
	// without duplicates.
	Transactions []string `json:"transactions" yaml:"transactions"`

	// IsPromotionalItem and PromotionalGroupID are set only by the
	// promotion classifier. An empty PromotionalGroupID means none.
	IsPromotionalItem  bool   `json:"isPromotionalItem" yaml:"is_promotional_item"`
	PromotionalGroupID string `json:"promotionalGroupId,omitempty" yaml:"promotional_group_id,omitempty"`

	// PromotionalHint and HintGroupID carry what the source file claimed.
	// They are informational and never drive classification.
	PromotionalHint bool   `json:"promotionalHint,omitempty" yaml:"promotional_hint,omitempty"`
	HintGroupID     string `json:"hintGroupId,omitempty" yaml:"hint_group_id,omitempty"`
}

// FullName joins first and last name with a single space.
func (p PatientRecord) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Clone returns a deep copy of the record.
func (p PatientRecord) Clone() PatientRecord {
	out := p
	if p.Transactions != nil {
		out.Transactions = append([]string(nil), p.Transactions...)
	}
	return out
}

// =============================================================================
// INDEX SET
// =============================================================================

// IndexSet is a set of row indices into a record slice.
type IndexSet map[int]struct{}

// NewIndexSet builds a set from the given indices.
func NewIndexSet(indices ...int) IndexSet {
	s := make(IndexSet, len(indices))
	for _, i := range indices {
		s[i] = struct{}{}
	}
	return s
}

// Add inserts index into the set.
func (s IndexSet) Add(index int) {
	s[index] = struct{}{}
}

// Has reports whether index is in the set.
func (s IndexSet) Has(index int) bool {
	_, ok := s[index]
	return ok
}

// Sorted returns the members in ascending order.
func (s IndexSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// =============================================================================
// CONFLICT
// =============================================================================

// Conflict is a transaction code referenced by records with more than one
// distinct patient code. Indices are ascending.
type Conflict struct {
	Code         string   `json:"code"`
	Indices      []int    `json:"indices"`
	PatientCodes []string `json:"patientCodes"`
}
