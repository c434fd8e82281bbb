package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ginjaninja78/patient-import/internal/types"
)

// RepositorySuite runs the same contract against every store.
type RepositorySuite struct {
	suite.Suite
	open func(t *testing.T) Repository
	repo Repository
	ctx  context.Context
}

func (s *RepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = s.open(s.T())
}

func (s *RepositorySuite) TearDownTest() {
	s.NoError(s.repo.Close())
}

func patient(id, code string, txs ...string) types.PatientRecord {
	return types.PatientRecord{
		ID:           id,
		Code:         code,
		FirstName:    "Jane",
		LastName:     "Doe",
		Age:          41,
		Sex:          types.SexFemale,
		Email:        "jane@example.com",
		CreatedDate:  "2025-04-01",
		Transactions: txs,
	}
}

func (s *RepositorySuite) TestUpsertAndGet() {
	rec := patient("id-1", "PX-JD-0000001", "TX25-04-00001", "TX25-04-00002")
	rec.IsPromotionalItem = true
	rec.PromotionalGroupID = "TX25-04-00001"

	s.Require().NoError(s.repo.Upsert(s.ctx, rec))

	got, err := s.repo.Get(s.ctx, "id-1")
	s.Require().NoError(err)
	s.Equal(rec, got)
}

func (s *RepositorySuite) TestUpsertReplacesByID() {
	s.Require().NoError(s.repo.Upsert(s.ctx, patient("id-1", "PX-JD-0000001")))

	updated := patient("id-1", "PX-JD-0000001")
	updated.Age = 42
	s.Require().NoError(s.repo.Upsert(s.ctx, updated))

	all, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(42, all[0].Age)
}

func (s *RepositorySuite) TestUpsertRequiresID() {
	s.Error(s.repo.Upsert(s.ctx, patient("", "PX-JD-0000001")))
}

func (s *RepositorySuite) TestGetMissing() {
	_, err := s.repo.Get(s.ctx, "nope")
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositorySuite) TestListOrderedByCode() {
	s.Require().NoError(s.repo.Upsert(s.ctx, patient("b", "PX-ZZ-0000001")))
	s.Require().NoError(s.repo.Upsert(s.ctx, patient("a", "PX-AA-0000001")))

	all, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal("PX-AA-0000001", all[0].Code)
	s.Equal("PX-ZZ-0000001", all[1].Code)
}

func (s *RepositorySuite) TestListExistingCodesDeduplicates() {
	s.Require().NoError(s.repo.Upsert(s.ctx, patient("1", "PX-JD-0000002")))
	s.Require().NoError(s.repo.Upsert(s.ctx, patient("2", "PX-JD-0000001")))
	s.Require().NoError(s.repo.Upsert(s.ctx, patient("3", "PX-JD-0000001")))

	codes, err := s.repo.ListExistingCodes(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"PX-JD-0000001", "PX-JD-0000002"}, codes)
}

func (s *RepositorySuite) TestEmptyStore() {
	codes, err := s.repo.ListExistingCodes(s.ctx)
	s.Require().NoError(err)
	s.Empty(codes)

	all, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &RepositorySuite{open: func(t *testing.T) Repository {
		return NewMemoryStore()
	}})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &RepositorySuite{open: func(t *testing.T) Repository {
		store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "patients.db"))
		require.NoError(t, err)
		return store
	}})
}

func TestSQLiteStore_InMemory(t *testing.T) {
	suite.Run(t, &RepositorySuite{open: func(t *testing.T) Repository {
		store, err := OpenSQLite(context.Background(), ":memory:")
		require.NoError(t, err)
		return store
	}})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "patients.db")

	store, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, patient("id-1", "PX-JD-0000001", "TX25-04-00009")))
	require.NoError(t, store.Close())

	store, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"TX25-04-00009"}, got.Transactions)
}

func TestOpen_SelectsStore(t *testing.T) {
	repo, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, repo)

	repo, err = Open(context.Background(), filepath.Join(t.TempDir(), "p.db"))
	require.NoError(t, err)
	defer repo.Close()
	assert.IsType(t, &SQLiteStore{}, repo)
}

func TestMemoryStore_ClosedRejectsCalls(t *testing.T) {
	store := NewMemoryStore(patient("id-1", "PX-JD-0000001"))
	require.NoError(t, store.Close())

	_, err := store.List(context.Background())
	assert.Error(t, err)
}

func TestMemoryStore_SeedIsCopied(t *testing.T) {
	rec := patient("id-1", "PX-JD-0000001", "TX25-04-00001")
	store := NewMemoryStore(rec)
	rec.Transactions[0] = "changed"

	got, err := store.Get(context.Background(), "id-1")
	require.NoError(t, err)
	assert.Equal(t, "TX25-04-00001", got.Transactions[0])
}
