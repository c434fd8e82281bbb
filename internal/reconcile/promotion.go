package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/patient-import/internal/types"
)

// Classification is the outcome of ClassifyPromotions.
type Classification struct {
	// Groups maps each transaction code to the ascending indices of the
	// records that reference it.
	Groups map[string][]int `json:"transactionGroups"`

	// PromotionalIndices are the records marked as bundle items.
	PromotionalIndices types.IndexSet `json:"-"`

	// Conflicts lists codes shared by more than one patient, sorted by code.
	Conflicts []types.Conflict `json:"conflicts"`
}

// GroupTransactions maps every transaction code to the indices of the
// records that list it. A record appears at most once per group because its
// transaction list has no repeats.
func GroupTransactions(records []types.PatientRecord) map[string][]int {
	groups := make(map[string][]int)
	for i, rec := range records {
		for _, tx := range rec.Transactions {
			groups[tx] = append(groups[tx], i)
		}
	}
	return groups
}

// ClassifyPromotions groups records by transaction code and annotates them
// in place.
//
// CLASSIFICATION RULES:
//  1. Groups with one member are left alone
//  2. If every member shares one patient code, the lowest index is the
//     primary item and every other member becomes a promotional item whose
//     group id is the transaction code
//  3. If members carry different patient codes, nothing is marked and the
//     group is reported as a conflict
//  4. A record that belongs to any conflicting group is never marked, even
//     by another group it shares with its own patient
//
// Promotion flags are reset first, so running it again after an edit gives
// the same result as running it on fresh records.
func ClassifyPromotions(records []types.PatientRecord) Classification {
	for i := range records {
		records[i].IsPromotionalItem = false
		records[i].PromotionalGroupID = ""
	}

	groups := GroupTransactions(records)
	promotional := types.NewIndexSet()
	var conflicts []types.Conflict

	// Visit codes in order so a record cited by several single-owner groups
	// always ends up with the same group id.
	txCodes := make([]string, 0, len(groups))
	for code := range groups {
		txCodes = append(txCodes, code)
	}
	sort.Strings(txCodes)

	// Conflicts first: a record in any conflicting group is never marked,
	// even when another of its groups has a single owner.
	conflicted := types.NewIndexSet()
	var bundles []string
	for _, code := range txCodes {
		indices := groups[code]
		if len(indices) < 2 {
			continue
		}

		owners := distinctCodes(records, indices)
		if len(owners) > 1 {
			conflicts = append(conflicts, types.Conflict{
				Code:         code,
				Indices:      append([]int(nil), indices...),
				PatientCodes: owners,
			})
			for _, idx := range indices {
				conflicted.Add(idx)
			}
			continue
		}
		bundles = append(bundles, code)
	}

	for _, code := range bundles {
		for _, idx := range groups[code][1:] {
			if records[idx].IsPromotionalItem || conflicted.Has(idx) {
				continue
			}
			records[idx].IsPromotionalItem = true
			records[idx].PromotionalGroupID = code
			promotional.Add(idx)
		}
	}

	return Classification{
		Groups:             groups,
		PromotionalIndices: promotional,
		Conflicts:          conflicts,
	}
}

func distinctCodes(records []types.PatientRecord, indices []int) []string {
	seen := make(map[string]bool, len(indices))
	var out []string
	for _, idx := range indices {
		code := records[idx].Code
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// REPORTING
// =============================================================================

// HumanSummary renders the reconciliation results for a terminal.
func HumanSummary(records []types.PatientRecord, duplicates types.IndexSet, c Classification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total records: %d\n", len(records))
	fmt.Fprintf(&b, "Duplicates of existing records: %d\n", len(duplicates))
	fmt.Fprintf(&b, "Promotional items: %d\n", len(c.PromotionalIndices))
	fmt.Fprintf(&b, "Transaction conflicts: %d\n", len(c.Conflicts))

	if len(duplicates) > 0 {
		fmt.Fprintf(&b, "\nDuplicates:\n")
		for _, idx := range duplicates.Sorted() {
			fmt.Fprintf(&b, "- row %d: %s (%s)\n", idx+1, records[idx].Code, records[idx].FullName())
		}
	}
	if len(c.PromotionalIndices) > 0 {
		fmt.Fprintf(&b, "\nPromotional items:\n")
		for _, idx := range c.PromotionalIndices.Sorted() {
			fmt.Fprintf(&b, "- row %d: %s in %s\n", idx+1, records[idx].Code, records[idx].PromotionalGroupID)
		}
	}
	if len(c.Conflicts) > 0 {
		fmt.Fprintf(&b, "\nConflicts (manual review):\n")
		for _, conflict := range c.Conflicts {
			fmt.Fprintf(&b, "- %s rows=%s patients=%s\n",
				conflict.Code, formatRows(conflict.Indices), strings.Join(conflict.PatientCodes, ","))
		}
	}
	return b.String()
}

func formatRows(indices []int) string {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = fmt.Sprintf("%d", idx+1)
	}
	return strings.Join(parts, ",")
}
