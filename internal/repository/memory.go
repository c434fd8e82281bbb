package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/ginjaninja78/patient-import/internal/types"
)

// MemoryStore keeps records in a map. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]types.PatientRecord
	closed  bool

	// FailOn, when set, makes Upsert fail for matching records. Tests use
	// it to exercise partial commits.
	FailOn func(types.PatientRecord) error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(seed ...types.PatientRecord) *MemoryStore {
	s := &MemoryStore{records: make(map[string]types.PatientRecord)}
	for _, r := range seed {
		s.records[r.ID] = r.Clone()
	}
	return s
}

func (s *MemoryStore) List(ctx context.Context) ([]types.PatientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := make([]types.PatientRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	sortRecords(out)
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (types.PatientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return types.PatientRecord{}, err
	}

	r, ok := s.records[id]
	if !ok {
		return types.PatientRecord{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, record types.PatientRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if record.ID == "" {
		return fmt.Errorf("upsert: record has no id")
	}
	if s.FailOn != nil {
		if err := s.FailOn(record); err != nil {
			return err
		}
	}

	s.records[record.ID] = record.Clone()
	return nil
}

func (s *MemoryStore) ListExistingCodes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(s.records))
	for _, r := range s.records {
		codes = append(codes, r.Code)
	}
	return uniqueSorted(codes), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) check(ctx context.Context) error {
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	return ctx.Err()
}
