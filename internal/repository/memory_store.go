package repository

import (
	"context"
	"fmt"
	"sync"

	"backend/internal/apperr"
	"backend/internal/model"
)

// MemoryStore is an in-memory RecordStore for tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.Procedure
	order   []string // insertion order for stable listings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.Procedure)}
}

func (s *MemoryStore) Create(ctx context.Context, rec *model.Procedure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("%w: procedure %s already exists", apperr.ErrConflict, rec.ID)
	}
	s.records[rec.ID] = *rec
	s.order = append(s.order, rec.ID)
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*model.Procedure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: procedure %s", apperr.ErrNotFound, id)
	}
	return &rec, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]model.Procedure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]model.Procedure, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.records[id])
	}
	return all, nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, identity string) ([]model.Procedure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mine := make([]model.Procedure, 0)
	for _, id := range s.order {
		if rec := s.records[id]; rec.CreatedBy == identity {
			mine = append(mine, rec)
		}
	}
	return mine, nil
}

func (s *MemoryStore) ReplaceVersion(ctx context.Context, id string, rec *model.Procedure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: procedure %s", apperr.ErrNotFound, id)
	}
	s.records[id] = *rec
	return nil
}
