// =============================================================================
// Patient Import - Record Normalizer
// =============================================================================
//
// The normalizer turns one RawRow into one PatientRecord. Column names are
// resolved through the alias table, codes through the codes package.
//
// NORMALIZATION STEPS (order matters):
//   1. Identifier from the patient_id aliases
//   2. Name from first/last columns, else split from a full-name column
//   3. Age, sex, phone, address, email, created date
//   4. Transaction references from the recent and history columns, merged
//   5. Promotional hint and hint group id (informational only)
//   6. Patient code: the identifier, or a PX{n} placeholder, normalized
//
// A row never fails to normalize. Anything that cannot be parsed falls back
// to a safe default and is reported as a warning.
//
// =============================================================================

package importer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/patient-import/internal/codes"
	"github.com/ginjaninja78/patient-import/internal/inference"
	"github.com/ginjaninja78/patient-import/internal/types"
	"github.com/ginjaninja78/patient-import/internal/validation"
)

// IDGenerator returns a fresh opaque record id.
type IDGenerator func() string

// UUIDGenerator is the default IDGenerator.
func UUIDGenerator() string {
	return uuid.NewString()
}

// dateLayouts are tried in order when reading a created date.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02-01-2006",
	"2006/01/02",
	"Jan 2, 2006",
}

// outputDateLayout is the created-date format of every record.
const outputDateLayout = "2006-01-02"

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	truthyHints   = map[string]bool{"yes": true, "true": true, "1": true, "y": true}
)

// =============================================================================
// NORMALIZER
// =============================================================================

// Normalizer converts raw rows to patient records.
type Normalizer struct {
	aliases inference.AliasTable
	newID   IDGenerator
	now     func() time.Time
}

// NewNormalizer creates a Normalizer. Nil arguments select the defaults:
// the built-in alias table, UUID ids and the wall clock.
func NewNormalizer(aliases inference.AliasTable, newID IDGenerator, now func() time.Time) *Normalizer {
	if aliases == nil {
		aliases = inference.DefaultAliasTable()
	}
	if newID == nil {
		newID = UUIDGenerator
	}
	if now == nil {
		now = time.Now
	}
	return &Normalizer{aliases: aliases, newID: newID, now: now}
}

// Normalize builds the record for row.
//
// PARAMETERS:
//   - row: The raw row.
//   - index: The 0-based position of the row among the data rows.
//
// RETURNS:
//   - The normalized record.
//   - Warnings for every fallback taken, followed by the record checks of
//     validation.ValidateRecord. All issues carry index and line number.
func (n *Normalizer) Normalize(row types.RawRow, index int) (types.PatientRecord, []*validation.ValidationError) {
	var issues []*validation.ValidationError
	warn := func(rule, field, value, message string) {
		w := validation.Warning(rule, field, value, message)
		w.Index = index
		w.RowNumber = row.LineNumber
		issues = append(issues, w)
	}

	rec := types.PatientRecord{ID: n.newID()}

	// =========================================================================
	// STEP 1: IDENTIFIER
	// =========================================================================

	identifier := n.aliases.Lookup(row, inference.FieldPatientID)

	// =========================================================================
	// STEP 2: NAME
	// =========================================================================

	rec.FirstName = collapseSpaces(n.aliases.Lookup(row, inference.FieldFirstName))
	rec.LastName = collapseSpaces(n.aliases.Lookup(row, inference.FieldLastName))
	if rec.FirstName == "" && rec.LastName == "" {
		rec.FirstName, rec.LastName = SplitFullName(n.aliases.Lookup(row, inference.FieldFullName))
	}

	// =========================================================================
	// STEP 3: DEMOGRAPHICS AND CONTACT
	// =========================================================================

	rawAge := n.aliases.Lookup(row, inference.FieldAge)
	age, ok := ParseAge(rawAge)
	if !ok {
		warn(validation.RuleFallback, "age", rawAge, "age could not be parsed; using 0")
	}
	rec.Age = age

	rawSex := n.aliases.Lookup(row, inference.FieldSex)
	sex, ok := ParseSex(rawSex)
	if !ok {
		warn(validation.RuleFallback, "sex", rawSex, "sex not recognized; using Male")
	}
	rec.Sex = sex

	rec.Phone = collapseSpaces(n.aliases.Lookup(row, inference.FieldPhone))
	rec.Address = collapseSpaces(n.aliases.Lookup(row, inference.FieldAddress))
	rec.Email = strings.ToLower(n.aliases.Lookup(row, inference.FieldEmail))

	rawDate := n.aliases.Lookup(row, inference.FieldCreatedDate)
	created, ok := ParseDate(rawDate)
	if !ok {
		created = n.now().Format(outputDateLayout)
		if rawDate != "" {
			warn(validation.RuleFallback, "created_date", rawDate, "date not recognized; using import date")
		}
	}
	rec.CreatedDate = created

	// =========================================================================
	// STEP 4: TRANSACTIONS
	// =========================================================================

	recent, rejectedRecent := codes.SplitTransactionCodes(n.aliases.Lookup(row, inference.FieldRecentTransaction))
	history, rejectedHistory := codes.SplitTransactionCodes(n.aliases.Lookup(row, inference.FieldTransactionHistory))
	rec.Transactions = codes.MergeTransactionCodes(recent, history)

	for _, token := range append(rejectedRecent, rejectedHistory...) {
		warn(validation.RuleUnrecognizedCode, "transactions", token, "transaction reference not recognized; dropped")
	}

	// =========================================================================
	// STEP 5: PROMOTIONAL HINTS
	// =========================================================================

	rec.PromotionalHint = IsTruthy(n.aliases.Lookup(row, inference.FieldPromotional))
	rec.HintGroupID = n.aliases.Lookup(row, inference.FieldPromotionalGroupID)

	// =========================================================================
	// STEP 6: PATIENT CODE
	// =========================================================================

	if identifier == "" {
		identifier = fmt.Sprintf("PX%d", index+1)
		warn(validation.RuleFallback, "patient_id", identifier, "no identifier; using placeholder")
	}
	rec.Code = codes.NormalizePatientCode(identifier)

	issues = append(issues, validation.ValidateRecord(rec, index, row.LineNumber)...)
	return rec, issues
}

// =============================================================================
// FIELD PARSERS
// =============================================================================

// SplitFullName splits on the last whitespace-delimited token. "Mary Ann
// Smith" gives ("Mary Ann", "Smith"); a single token is a first name.
func SplitFullName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

// ParseAge reads a non-negative integer age. "42", "42.0" and "42 years"
// are accepted. An empty value is 0 and not a fallback.
func ParseAge(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, true
	}

	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 {
			return 0, false
		}
		return n, true
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
			return 0, false
		}
		return int(f), true
	}

	if fields := strings.Fields(value); len(fields) == 2 && strings.HasPrefix(strings.ToLower(fields[1]), "y") {
		if n, err := strconv.Atoi(fields[0]); err == nil && n >= 0 {
			return n, true
		}
	}

	return 0, false
}

// ParseSex maps a value to Male or Female by its first letter. Anything
// else, the empty string included, is Male; only non-empty unknown values
// report a fallback.
func ParseSex(value string) (types.Sex, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return types.SexMale, true
	}

	switch strings.ToLower(value)[0] {
	case 'm':
		return types.SexMale, true
	case 'f':
		return types.SexFemale, true
	default:
		return types.SexMale, false
	}
}

// ParseDate reads a date in any of the accepted layouts and returns it as
// YYYY-MM-DD.
func ParseDate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(outputDateLayout), true
		}
	}
	return "", false
}

// IsTruthy reports whether a hint cell means yes.
func IsTruthy(value string) bool {
	return truthyHints[strings.ToLower(strings.TrimSpace(value))]
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
