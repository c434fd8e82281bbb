package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/patient-import/internal/codes"
	"github.com/ginjaninja78/patient-import/internal/types"
)

// ValidateRecord checks a normalized or caller-edited record. Issues carry
// index and rowNumber so they can be merged with the normalizer's warnings.
//
// ERRORS (block a clean commit):
//   - negative age
//   - sex outside Male/Female
//   - a transaction code that is not canonical, or listed twice
//
// WARNINGS:
//   - a patient code that is not canonical (e.g. a PX{n} placeholder)
//   - no first and no last name
//   - an email without '@'
func ValidateRecord(rec types.PatientRecord, index, rowNumber int) []*ValidationError {
	var errs []*ValidationError
	add := func(severity, rule, field, value, message string) {
		errs = append(errs, &ValidationError{
			Severity:  severity,
			Rule:      rule,
			Field:     field,
			Value:     value,
			Message:   message,
			Index:     index,
			RowNumber: rowNumber,
		})
	}

	if !codes.IsCanonicalPatientCode(rec.Code) {
		add(SeverityWarning, RuleUnrecognizedCode, "patient_id", rec.Code,
			"patient code is not in PX-XX-0000000 form")
	}

	if strings.TrimSpace(rec.FirstName) == "" && strings.TrimSpace(rec.LastName) == "" {
		add(SeverityWarning, RuleRequired, "name", "", "record has no name")
	}

	if rec.Age < 0 {
		add(SeverityError, RuleRange, "age", fmt.Sprint(rec.Age), "age must not be negative")
	}

	if rec.Sex != types.SexMale && rec.Sex != types.SexFemale {
		add(SeverityError, RuleFormat, "sex", string(rec.Sex), "sex must be Male or Female")
	}

	if rec.Email != "" && !strings.Contains(rec.Email, "@") {
		add(SeverityWarning, RuleFormat, "email", rec.Email, "email address has no '@'")
	}

	seen := make(map[string]bool, len(rec.Transactions))
	for _, tx := range rec.Transactions {
		if !codes.IsCanonicalTransactionCode(tx) {
			add(SeverityError, RuleFormat, "transactions", tx, "transaction code is not in TXyy-mm-00000 form")
		}
		if seen[tx] {
			add(SeverityError, RuleDuplicate, "transactions", tx, "transaction code listed twice")
		}
		seen[tx] = true
	}

	return errs
}
