// Package cached layers a ristretto in-process read cache over another
// record store. The lifecycle engine is the sole writer, so the cache is
// refreshed synchronously on every write and reads stay consistent with the
// writer's own view (read-your-writes for a single key).
package cached

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/Strob0t/ValidationHub/internal/domain/validation"
	"github.com/Strob0t/ValidationHub/internal/port/store"
)

// Store wraps an inner RecordStore with an L1 cache for Get.
type Store struct {
	inner store.RecordStore
	cache *ristretto.Cache[string, []byte]
	ttl   time.Duration
}

// New creates a cached store. maxCostBytes bounds the total size of cached
// records; ttl bounds staleness for entries written by other processes
// sharing a remote backend.
func New(inner store.RecordStore, maxCostBytes int64, ttl time.Duration) (*Store, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Store{inner: inner, cache: c, ttl: ttl}, nil
}

// Put writes through to the inner store and refreshes the cache entry.
func (s *Store) Put(ctx context.Context, rec *validation.Record) error {
	if err := s.inner.Put(ctx, rec); err != nil {
		return err
	}
	s.fill(rec)
	return nil
}

// Get serves from cache when possible, falling back to the inner store.
func (s *Store) Get(ctx context.Context, actionID string) (*validation.Record, error) {
	if data, ok := s.cache.Get(actionID); ok {
		var rec validation.Record
		if err := json.Unmarshal(data, &rec); err == nil {
			return &rec, nil
		}
		s.cache.Del(actionID)
	}

	rec, err := s.inner.Get(ctx, actionID)
	if err != nil {
		return nil, err
	}
	s.fill(rec)
	return rec, nil
}

// Update delegates to the inner store's atomic read-modify-write and
// refreshes the cache with the result.
func (s *Store) Update(ctx context.Context, actionID string, fn func(*validation.Record) error) (*validation.Record, error) {
	rec, err := s.inner.Update(ctx, actionID, fn)
	if err != nil {
		return nil, err
	}
	s.fill(rec)
	return rec, nil
}

// List bypasses the cache; full scans go straight to the inner store.
func (s *Store) List(ctx context.Context, status validation.Status) (map[string]*validation.Record, error) {
	return s.inner.List(ctx, status)
}

// Close releases cache resources.
func (s *Store) Close() {
	s.cache.Close()
}

func (s *Store) fill(rec *validation.Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	// Wait for the async admission buffer so the writer immediately sees
	// its own write on the next Get.
	s.cache.SetWithTTL(rec.ActionID(), data, int64(len(data)), s.ttl)
	s.cache.Wait()
}
