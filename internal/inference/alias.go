// =============================================================================
// Patient Import - Alias Table
// =============================================================================
//
// The alias table maps each canonical field to the header spellings that may
// carry it in an export. Candidates are listed in priority order. The column
// inferencer tries every candidate as an exact (case-insensitive) header
// match before it falls back to substring matching, so listing the most
// specific spelling first is enough to steer ambiguous files.
//
// Alias lists are data, not code. Department-specific overrides can be
// supplied through the YAML configuration (see config.MainConfig.Aliases).
//
// =============================================================================

package inference

import (
	"fmt"
	"sort"

	"github.com/ginjaninja78/patient-import/internal/types"
)

// =============================================================================
// CANONICAL FIELDS
// =============================================================================

// Field is a canonical field name.
type Field string

const (
	FieldPatientID          Field = "patient_id"
	FieldFirstName          Field = "first_name"
	FieldLastName           Field = "last_name"
	FieldFullName           Field = "full_name"
	FieldAge                Field = "age"
	FieldSex                Field = "sex"
	FieldPhone              Field = "phone"
	FieldAddress            Field = "address"
	FieldEmail              Field = "email"
	FieldCreatedDate        Field = "created_date"
	FieldRecentTransaction  Field = "recent_transaction"
	FieldTransactionHistory Field = "transaction_history"
	FieldPromotional        Field = "promotional"
	FieldPromotionalGroupID Field = "promotional_group_id"
)

// =============================================================================
// ALIAS ENTRY
// =============================================================================

// AliasEntry lists the header spellings for one canonical field.
type AliasEntry struct {
	// Candidates in priority order.
	Candidates []string `yaml:"candidates"`

	// Exclude lists substrings that disqualify a header during the
	// substring phase only. Exact matches are never excluded.
	Exclude []string `yaml:"exclude,omitempty"`
}

// AliasTable maps canonical fields to their alias entries.
type AliasTable map[Field]AliasEntry

// DefaultAliasTable returns the built-in alias table. The returned table is
// a fresh copy and may be modified by the caller.
func DefaultAliasTable() AliasTable {
	return AliasTable{
		FieldPatientID: {
			Candidates: []string{"Patient ID", "ID", "Code", "Patient Code"},
			Exclude:    []string{"transaction", "group", "promo", "zip", "postal", "email"},
		},
		FieldFirstName: {
			Candidates: []string{"First Name", "FirstName", "Given Name", "First", "Given"},
		},
		FieldLastName: {
			Candidates: []string{"Last Name", "LastName", "Family Name", "Surname", "Last", "Family"},
		},
		FieldFullName: {
			Candidates: []string{"Full Name", "Patient Name", "Name"},
			Exclude:    []string{"first", "last", "given", "family", "surname", "user", "file"},
		},
		FieldAge: {
			Candidates: []string{"Age", "Years", "Age (Years)"},
			Exclude:    []string{"page", "image", "message", "usage"},
		},
		FieldSex: {
			Candidates: []string{"Sex", "Gender"},
		},
		FieldPhone: {
			Candidates: []string{"Phone", "Phone Number", "Mobile", "Contact Number", "Contact", "Tel"},
		},
		FieldAddress: {
			Candidates: []string{"Address", "Home Address", "Street"},
			Exclude:    []string{"email", "e-mail", "ip"},
		},
		FieldEmail: {
			Candidates: []string{"Email", "E-mail", "Email Address", "Mail"},
		},
		FieldCreatedDate: {
			Candidates: []string{"Created Date", "Date Created", "Registration Date", "Registered", "Date"},
			Exclude:    []string{"birth", "update", "modified"},
		},
		FieldRecentTransaction: {
			Candidates: []string{"Recent Transaction", "Latest Transaction", "Last Transaction", "Transaction ID", "Transaction Code", "Transaction"},
			Exclude:    []string{"history", "transactions", "date", "amount"},
		},
		FieldTransactionHistory: {
			Candidates: []string{"Transaction History", "Transactions", "History"},
		},
		FieldPromotional: {
			Candidates: []string{"Promotional", "Is Promotional", "Promo", "Bundle", "Promotion"},
			Exclude:    []string{"group", "id", "code"},
		},
		FieldPromotionalGroupID: {
			Candidates: []string{"Promotional Group ID", "Promo Group", "Group ID", "Bundle ID", "Promotional Group"},
		},
	}
}

// Candidates returns the candidate list for field, or nil if the table has
// no entry.
func (t AliasTable) Candidates(field Field) []string {
	return t[field].Candidates
}

// Lookup infers the value of field in row using the table's entry.
func (t AliasTable) Lookup(row types.RawRow, field Field) string {
	entry, ok := t[field]
	if !ok {
		return ""
	}
	return InferWithExclusions(row, entry.Candidates, entry.Exclude)
}

// Header returns the header that Lookup would read for field, or "" when no
// header matches.
func (t AliasTable) Header(row types.RawRow, field Field) string {
	entry, ok := t[field]
	if !ok {
		return ""
	}
	header, _ := match(row, entry.Candidates, entry.Exclude)
	return header
}

// Merge returns a copy of t with every entry in overrides replacing the
// entry of the same field.
func (t AliasTable) Merge(overrides map[string][]string) AliasTable {
	out := make(AliasTable, len(t))
	for field, entry := range t {
		out[field] = entry
	}
	for name, candidates := range overrides {
		field := Field(name)
		entry := out[field]
		entry.Candidates = append([]string(nil), candidates...)
		out[field] = entry
	}
	return out
}

// Validate checks that every entry has at least one non-empty candidate.
func (t AliasTable) Validate() error {
	fields := make([]string, 0, len(t))
	for field := range t {
		fields = append(fields, string(field))
	}
	sort.Strings(fields)

	for _, name := range fields {
		entry := t[Field(name)]
		if len(entry.Candidates) == 0 {
			return fmt.Errorf("alias entry %q has no candidates", name)
		}
		for i, c := range entry.Candidates {
			if c == "" {
				return fmt.Errorf("alias entry %q has an empty candidate at position %d", name, i)
			}
		}
	}
	return nil
}
