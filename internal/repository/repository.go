// =============================================================================
// Patient Import - Repository
// =============================================================================
//
// The repository is the durable home of patient records. The import engine
// never reaches it through globals; a Repository is constructed by the
// caller, injected into the engine and closed when the session ends.
//
// IMPLEMENTATIONS:
//   - MemoryStore: process-local map, used by tests and dry runs
//   - SQLiteStore: database/sql over modernc.org/sqlite (pure Go)
//
// =============================================================================

package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/ginjaninja78/patient-import/internal/types"
)

// ErrNotFound is returned by Get when no record has the given id.
var ErrNotFound = errors.New("record not found")

// Repository is the contract the import engine consumes.
type Repository interface {
	// List returns every stored record ordered by code, then id.
	List(ctx context.Context) ([]types.PatientRecord, error)

	// Get returns the record with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (types.PatientRecord, error)

	// Upsert inserts the record or replaces the one with the same id.
	Upsert(ctx context.Context, record types.PatientRecord) error

	// ListExistingCodes returns the canonical patient codes in use.
	ListExistingCodes(ctx context.Context) ([]string, error)

	// Close releases the store's resources.
	Close() error
}

// Open returns the store selected by path: ":memory:" (or empty) gives a
// MemoryStore, anything else a SQLiteStore backed by that file.
func Open(ctx context.Context, path string) (Repository, error) {
	if path == "" || path == ":memory:" {
		return NewMemoryStore(), nil
	}
	return OpenSQLite(ctx, path)
}

func sortRecords(records []types.PatientRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Code != records[j].Code {
			return records[i].Code < records[j].Code
		}
		return records[i].ID < records[j].ID
	})
}

func uniqueSorted(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
