// Package memstore implements the record store and subscriber registry ports
// in process memory. It is the prototype-grade default backend; per-key
// atomicity comes from a single RWMutex over the record map, which is
// sufficient at the target scale.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/Strob0t/ValidationHub/internal/domain"
	"github.com/Strob0t/ValidationHub/internal/domain/validation"
)

// Store is an in-memory RecordStore.
type Store struct {
	mu      sync.RWMutex
	records map[string]validation.Record
}

// NewStore creates an empty in-memory record store.
func NewStore() *Store {
	return &Store{records: make(map[string]validation.Record)}
}

// Put overwrites the record for its action_id.
func (s *Store) Put(_ context.Context, rec *validation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ActionID()] = *rec
	return nil
}

// Get returns a copy of the record for the given action_id.
func (s *Store) Get(_ context.Context, actionID string) (*validation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[actionID]
	if !ok {
		return nil, fmt.Errorf("get record %s: %w", actionID, domain.ErrNotFound)
	}
	return &rec, nil
}

// Update applies fn to the stored record under the write lock.
func (s *Store) Update(_ context.Context, actionID string, fn func(*validation.Record) error) (*validation.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[actionID]
	if !ok {
		return nil, fmt.Errorf("update record %s: %w", actionID, domain.ErrNotFound)
	}
	if err := fn(&rec); err != nil {
		return nil, err
	}
	s.records[actionID] = rec
	return &rec, nil
}

// List returns a snapshot of all records, filtered by status when non-empty.
func (s *Store) List(_ context.Context, status validation.Status) (map[string]*validation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*validation.Record, len(s.records))
	for id, rec := range s.records {
		if status != "" && rec.Status != status {
			continue
		}
		out[id] = &rec
	}
	return out, nil
}
