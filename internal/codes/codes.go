// =============================================================================
// Patient Import - Code Normalizer
// =============================================================================
//
// Pure functions that convert legacy identifiers into their fixed-width
// canonical forms. Every function here is idempotent and never fails: input
// that does not look like a known legacy form is returned unchanged.
//
// FORMATS:
//   Patient code      PX-{2 uppercase initials}-{7-digit sequence}
//                     legacy: PX-AB12, px-ab-12
//   Transaction code  TX{yy}-{mm}-{5-digit sequence}
//                     legacy: TX25-04-7
//
// =============================================================================

package codes

import (
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// FORMAT CONSTANTS
// =============================================================================

const (
	// PatientPrefix starts every patient code.
	PatientPrefix = "PX-"

	// TransactionPrefix starts every transaction code.
	TransactionPrefix = "TX"

	// PatientSequenceWidth is the zero-padded width of a patient sequence.
	PatientSequenceWidth = 7

	// TransactionSequenceWidth is the zero-padded width of a transaction sequence.
	TransactionSequenceWidth = 5
)

var (
	canonicalPatient = regexp.MustCompile(`^PX-[A-Z]{2}-\d{7}$`)
	legacyPatient    = regexp.MustCompile(`(?i)^PX-([A-Z]{2})-?(\d{1,7})$`)

	canonicalTransaction = regexp.MustCompile(`^TX\d{2}-\d{2}-\d{5}$`)
	legacyTransaction    = regexp.MustCompile(`(?i)^TX(\d{2})-(\d{2})-(\d{1,5})$`)

	// tokenSeparators splits free-text transaction fields.
	tokenSeparators = regexp.MustCompile(`[,;|\s]+`)
)

// =============================================================================
// PATIENT CODES
// =============================================================================

// IsCanonicalPatientCode reports whether code is already canonical.
func IsCanonicalPatientCode(code string) bool {
	return canonicalPatient.MatchString(code)
}

// NormalizePatientCode converts a legacy patient code into canonical form.
//
// EXAMPLES:
//   "PX-AB12"        -> "PX-AB-0000012"
//   "px-ab-12"       -> "PX-AB-0000012"
//   "PX-AB-0000012"  -> "PX-AB-0000012" (unchanged)
//   "PX4"            -> "PX4"           (unrecognized, unchanged)
func NormalizePatientCode(code string) string {
	trimmed := strings.TrimSpace(code)
	if canonicalPatient.MatchString(trimmed) {
		return trimmed
	}

	m := legacyPatient.FindStringSubmatch(trimmed)
	if m == nil {
		return code
	}

	return PatientPrefix + strings.ToUpper(m[1]) + "-" + PadLeft(m[2], PatientSequenceWidth, '0')
}

// =============================================================================
// TRANSACTION CODES
// =============================================================================

// IsCanonicalTransactionCode reports whether code is already canonical.
func IsCanonicalTransactionCode(code string) bool {
	return canonicalTransaction.MatchString(code)
}

// NormalizeTransactionCode converts a legacy transaction code into canonical
// form. "TX25-04-7" becomes "TX25-04-00007". Anything else is returned as is.
func NormalizeTransactionCode(code string) string {
	trimmed := strings.TrimSpace(code)
	if canonicalTransaction.MatchString(trimmed) {
		return trimmed
	}

	m := legacyTransaction.FindStringSubmatch(trimmed)
	if m == nil {
		return code
	}

	return TransactionPrefix + m[1] + "-" + m[2] + "-" + PadLeft(m[3], TransactionSequenceWidth, '0')
}

// ParseMultipleTransactionCodes splits a free-text field on commas,
// semicolons, pipes and whitespace runs, normalizes every token, and keeps
// only canonical results. Order of first appearance is preserved and
// duplicates are dropped.
func ParseMultipleTransactionCodes(field string) []string {
	codes, _ := SplitTransactionCodes(field)
	return codes
}

// SplitTransactionCodes is ParseMultipleTransactionCodes that also returns
// the tokens it had to discard, so callers can report them.
func SplitTransactionCodes(field string) (codes []string, rejected []string) {
	seen := make(map[string]bool)
	for _, token := range tokenSeparators.Split(field, -1) {
		if token == "" {
			continue
		}

		normalized := NormalizeTransactionCode(token)
		if !canonicalTransaction.MatchString(normalized) {
			rejected = append(rejected, token)
			continue
		}

		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		codes = append(codes, normalized)
	}
	return codes, rejected
}

// MergeTransactionCodes concatenates code lists, keeping first-seen order
// and dropping duplicates.
func MergeTransactionCodes(lists ...[]string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, list := range lists {
		for _, code := range list {
			if seen[code] {
				continue
			}
			seen[code] = true
			merged = append(merged, code)
		}
	}
	return merged
}

// =============================================================================
// SEQUENCE GENERATION
// =============================================================================

// GenerateNextCode returns prefix followed by one more than the largest
// numeric suffix found among existingCodes that start with prefix.
//
// PARAMETERS:
//   - prefix: e.g. "PX-JD-" or "TX25-04-".
//   - existingCodes: snapshot of codes already in use.
//
// RETURNS:
//   - The next code, zero-padded to the width of the format the prefix
//     belongs to. Result depends only on the arguments.
func GenerateNextCode(prefix string, existingCodes []string) string {
	return GenerateNextCodeWidth(prefix, existingCodes, sequenceWidth(prefix))
}

// GenerateNextCodeWidth is GenerateNextCode with an explicit pad width.
func GenerateNextCodeWidth(prefix string, existingCodes []string, width int) string {
	max := 0
	for _, code := range existingCodes {
		if !strings.HasPrefix(code, prefix) {
			continue
		}

		suffix := leadingDigits(code[len(prefix):])
		if suffix == "" {
			continue
		}

		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}

	return prefix + PadLeft(strconv.Itoa(max+1), width, '0')
}

// PatientCodePrefix builds the "PX-AB-" prefix for the given initials.
func PatientCodePrefix(initials string) string {
	return PatientPrefix + initials + "-"
}

// sequenceWidth picks the pad width for the format a prefix belongs to.
func sequenceWidth(prefix string) int {
	upper := strings.ToUpper(prefix)
	switch {
	case strings.HasPrefix(upper, PatientPrefix):
		return PatientSequenceWidth
	case strings.HasPrefix(upper, TransactionPrefix):
		return TransactionSequenceWidth
	default:
		return PatientSequenceWidth
	}
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

// PadLeft pads s on the left with padChar up to length. Longer strings are
// returned unchanged.
func PadLeft(s string, length int, padChar rune) string {
	if len(s) >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-len(s)) + s
}
