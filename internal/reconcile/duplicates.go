// =============================================================================
// Patient Import - Reconciliation
// =============================================================================
//
// Reconciliation runs after every row is normalized. It compares the batch
// against the repository's existing codes and against itself:
//   - DetectDuplicates flags rows whose code is already persisted
//   - GroupTransactions indexes rows by the transaction codes they cite
//   - ClassifyPromotions marks single-owner bundles and reports conflicts
//
// Nothing here reads or writes the repository. Callers pass a snapshot.
//
// =============================================================================

package reconcile

import (
	"github.com/ginjaninja78/patient-import/internal/types"
)

// DetectDuplicates returns the indices of records whose code appears in
// existingCodes. Records are not modified. Code equality is the only
// signal; names, emails and phones are not compared.
func DetectDuplicates(records []types.PatientRecord, existingCodes []string) types.IndexSet {
	known := make(map[string]struct{}, len(existingCodes))
	for _, code := range existingCodes {
		known[code] = struct{}{}
	}

	dups := types.NewIndexSet()
	for i, rec := range records {
		if _, ok := known[rec.Code]; ok {
			dups.Add(i)
		}
	}
	return dups
}

// BatchCodeCollisions returns codes that appear on more than one record of
// the batch, mapped to their indices. These are not duplicates against the
// repository but usually point at the same patient listed twice.
func BatchCodeCollisions(records []types.PatientRecord) map[string][]int {
	byCode := make(map[string][]int)
	for i, rec := range records {
		if rec.Code == "" {
			continue
		}
		byCode[rec.Code] = append(byCode[rec.Code], i)
	}

	for code, indices := range byCode {
		if len(indices) < 2 {
			delete(byCode, code)
		}
	}
	return byCode
}
