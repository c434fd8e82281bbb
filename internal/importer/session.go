package importer

import (
	"context"
	"fmt"

	"github.com/ginjaninja78/patient-import/internal/codes"
	"github.com/ginjaninja78/patient-import/internal/config"
	"github.com/ginjaninja78/patient-import/internal/types"
	"github.com/ginjaninja78/patient-import/internal/validation"
)

// Session holds one analysis while the caller reviews it: which records are
// selected, edits to them, and the final commit. Discarding the session
// before Commit abandons the import. A Session is not safe for concurrent
// use.
type Session struct {
	analysis *Analysis
	selected types.IndexSet
	logger   Logger

	// overwrites maps a record to the id it had before Overwrite pointed it
	// at a persisted record.
	overwrites map[int]string
}

// RecordLister reads the persisted records.
type RecordLister interface {
	List(ctx context.Context) ([]types.PatientRecord, error)
}

// NewSession starts a review of analysis with nothing selected.
func NewSession(analysis *Analysis, logger Logger) *Session {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Session{
		analysis:   analysis,
		selected:   types.NewIndexSet(),
		logger:     logger,
		overwrites: make(map[int]string),
	}
}

// Analysis returns the session's current analysis.
func (s *Session) Analysis() *Analysis {
	return s.analysis
}

// =============================================================================
// SELECTION
// =============================================================================

// Select adds records to the selection.
func (s *Session) Select(indices ...int) error {
	for _, i := range indices {
		if err := s.checkIndex(i); err != nil {
			return err
		}
	}
	for _, i := range indices {
		s.selected.Add(i)
	}
	return nil
}

// Deselect removes records from the selection. Unknown indices are ignored.
func (s *Session) Deselect(indices ...int) {
	for _, i := range indices {
		delete(s.selected, i)
	}
}

// SelectAll selects every record, duplicates and conflicts included.
func (s *Session) SelectAll() {
	for i := range s.analysis.Records {
		s.selected.Add(i)
	}
}

// SelectNew selects every record whose code is not already persisted.
func (s *Session) SelectNew() {
	for i := range s.analysis.Records {
		if !s.analysis.Duplicates.Has(i) {
			s.selected.Add(i)
		}
	}
}

// SelectClean selects records that are new, outside any conflict, and free
// of error-severity issues.
func (s *Session) SelectClean() {
	for i := range s.analysis.Records {
		if s.analysis.Duplicates.Has(i) || s.analysis.IsConflicted(i) || s.analysis.HasErrors(i) {
			continue
		}
		s.selected.Add(i)
	}
}

// ApplyPolicy selects records by a configured policy name.
func (s *Session) ApplyPolicy(policy string) error {
	switch policy {
	case config.SelectAll:
		s.SelectAll()
	case config.SelectNew, "":
		s.SelectNew()
	case config.SelectClean:
		s.SelectClean()
	default:
		return fmt.Errorf("unknown selection policy %q", policy)
	}
	return nil
}

// Selected returns the selected indices in ascending order.
func (s *Session) Selected() []int {
	return s.selected.Sorted()
}

// IsSelected reports whether record i is selected.
func (s *Session) IsSelected(i int) bool {
	return s.selected.Has(i)
}

// =============================================================================
// EDITING
// =============================================================================

// Edit applies fn to a copy of record i, then re-validates it and reruns
// duplicate and transaction analysis over the whole batch.
//
// RE-VALIDATION:
//   - The id cannot be changed
//   - If the first or last name changed, the code is regenerated from the
//     new initials, numbered after the repository snapshot and every other
//     code in the batch
//   - Otherwise the code and transaction references are normalized again
//   - Promotion flags are recomputed, never taken from fn
//
// RETURNS:
//   - The record's issues after the edit.
func (s *Session) Edit(i int, fn func(*types.PatientRecord)) ([]*validation.ValidationError, error) {
	if err := s.checkIndex(i); err != nil {
		return nil, err
	}

	before := s.analysis.Records[i]
	rec := before.Clone()
	fn(&rec)

	rec.ID = before.ID

	if rec.FirstName != before.FirstName || rec.LastName != before.LastName {
		rec.Code = s.nextCode(i, rec.FirstName, rec.LastName)
		s.logger.Info("Regenerated patient code after name edit", "index", i, "old", before.Code, "new", rec.Code)
	} else {
		rec.Code = codes.NormalizePatientCode(rec.Code)
	}

	// A record that no longer carries the persisted code stops replacing it.
	if original, ok := s.overwrites[i]; ok && rec.Code != before.Code {
		rec.ID = original
		delete(s.overwrites, i)
		s.logger.Info("Dropped overwrite after code edit", "index", i, "code", rec.Code)
	}

	var refs []string
	for _, tx := range rec.Transactions {
		refs = append(refs, codes.NormalizeTransactionCode(tx))
	}
	rec.Transactions = codes.MergeTransactionCodes(refs)

	s.analysis.Records[i] = rec
	s.analysis.Issues[i] = validation.ValidateRecord(rec, i, s.analysis.RowNumbers[i])
	s.analysis.reconcile()

	return s.analysis.Issues[i], nil
}

// nextCode numbers a code for record i after the repository snapshot and
// the codes of every other record in the batch.
func (s *Session) nextCode(i int, first, last string) string {
	inUse := make([]string, 0, len(s.analysis.ExistingCodes)+len(s.analysis.Records))
	inUse = append(inUse, s.analysis.ExistingCodes...)
	for j, other := range s.analysis.Records {
		if j != i {
			inUse = append(inUse, other.Code)
		}
	}

	prefix := codes.PatientCodePrefix(codes.Initials(first, last))
	return codes.GenerateNextCode(prefix, inUse)
}

// =============================================================================
// OVERWRITE
// =============================================================================

// Overwrite makes duplicate records replace the persisted records that share
// their codes, and selects them. Each record takes over a persisted id, so
// Commit updates the stored record in place instead of adding another one
// with the same code.
//
// PAIRING:
//   - Only records flagged as duplicates can overwrite
//   - Records sharing a code (a bundle) are paired in index order with the
//     persisted records of that code in list order
//   - A persisted record is replaced by at most one record of the batch
//
// RETURNS:
//   - An error, with nothing applied, if any index is out of range, is not a
//     duplicate, or has no persisted record left to replace.
func (s *Session) Overwrite(ctx context.Context, repo RecordLister, indices ...int) error {
	for _, i := range indices {
		if err := s.checkIndex(i); err != nil {
			return err
		}
		if !s.analysis.Duplicates.Has(i) {
			return fmt.Errorf("record %d (%s) is not a duplicate", i, s.analysis.Records[i].Code)
		}
	}

	stored, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	byCode := make(map[string][]string)
	for _, rec := range stored {
		byCode[rec.Code] = append(byCode[rec.Code], rec.ID)
	}

	claimed := make(map[string]bool)
	for j := range s.overwrites {
		claimed[s.analysis.Records[j].ID] = true
	}

	ids := make(map[int]string, len(indices))
	for _, i := range types.NewIndexSet(indices...).Sorted() {
		if s.IsOverwrite(i) {
			continue
		}
		code := s.analysis.Records[i].Code
		id := ""
		for _, candidate := range byCode[code] {
			if !claimed[candidate] {
				id = candidate
				break
			}
		}
		if id == "" {
			return fmt.Errorf("record %d: no persisted record with code %s left to replace", i, code)
		}
		claimed[id] = true
		ids[i] = id
	}

	for _, i := range indices {
		s.selected.Add(i)
	}
	for i, id := range ids {
		rec := &s.analysis.Records[i]
		s.overwrites[i] = rec.ID
		rec.ID = id
		s.logger.Debug("Record will overwrite persisted record", "index", i, "code", rec.Code, "id", id)
	}
	return nil
}

// OverwriteDuplicates applies Overwrite to every selected duplicate.
func (s *Session) OverwriteDuplicates(ctx context.Context, repo RecordLister) error {
	var indices []int
	for _, i := range s.selected.Sorted() {
		if s.analysis.Duplicates.Has(i) {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return nil
	}
	return s.Overwrite(ctx, repo, indices...)
}

// IsOverwrite reports whether record i replaces a persisted record on commit.
func (s *Session) IsOverwrite(i int) bool {
	_, ok := s.overwrites[i]
	return ok
}

// =============================================================================
// COMMIT
// =============================================================================

// Commit writes the selected records through repo in index order and clears
// the selection. Records that fail are reported and not retried; records
// already written stay written.
func (s *Session) Commit(ctx context.Context, repo Upserter) CommitResult {
	indices := s.selected.Sorted()
	records := make([]types.PatientRecord, len(indices))
	for k, i := range indices {
		records[k] = s.analysis.Records[i]
	}

	result := execute(ctx, repo, records, indices)
	s.selected = types.NewIndexSet()

	for _, f := range result.Failures {
		s.logger.Error("Commit failed", "index", f.Index, "code", f.Code, "error", f.Err)
	}
	s.logger.Info("Commit complete", "written", result.Written, "failed", len(result.Failures))

	return result
}

func (s *Session) checkIndex(i int) error {
	if i < 0 || i >= len(s.analysis.Records) {
		return fmt.Errorf("record index %d out of range [0, %d)", i, len(s.analysis.Records))
	}
	return nil
}
