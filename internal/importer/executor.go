package importer

import (
	"context"
	"fmt"

	"github.com/ginjaninja78/patient-import/internal/types"
)

// Upserter is the part of the repository the executor writes through.
type Upserter interface {
	Upsert(ctx context.Context, record types.PatientRecord) error
}

// CommitFailure describes one record the repository refused.
type CommitFailure struct {
	// Index is the record's position in the analysis.
	Index    int
	RecordID string
	Code     string
	Err      error
}

func (f CommitFailure) Error() string {
	return fmt.Sprintf("record %d (%s, %s): %v", f.Index, f.Code, f.RecordID, f.Err)
}

func (f CommitFailure) Unwrap() error { return f.Err }

// CommitResult is the outcome of Execute.
type CommitResult struct {
	// Written is the number of records the repository accepted.
	Written int

	// Committed lists the indices that were written, ascending.
	Committed []int

	// Failures lists the records that were not written.
	Failures []CommitFailure
}

// OK reports whether every record was written.
func (r CommitResult) OK() bool {
	return len(r.Failures) == 0
}

// Execute upserts each record in order. Records are independent: a failure
// is recorded and the loop moves on, and earlier writes stay in place. Once
// ctx is done the remaining records are reported as failed without being
// attempted.
func Execute(ctx context.Context, repo Upserter, records []types.PatientRecord) CommitResult {
	indices := make([]int, len(records))
	for i := range records {
		indices[i] = i
	}
	return execute(ctx, repo, records, indices)
}

// execute is Execute with the caller's indices attached to each record.
func execute(ctx context.Context, repo Upserter, records []types.PatientRecord, indices []int) CommitResult {
	var result CommitResult

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			result.Failures = append(result.Failures, CommitFailure{
				Index: indices[i], RecordID: rec.ID, Code: rec.Code, Err: err,
			})
			continue
		}

		if err := repo.Upsert(ctx, rec); err != nil {
			result.Failures = append(result.Failures, CommitFailure{
				Index: indices[i], RecordID: rec.ID, Code: rec.Code, Err: err,
			})
			continue
		}

		result.Written++
		result.Committed = append(result.Committed, indices[i])
	}

	return result
}
