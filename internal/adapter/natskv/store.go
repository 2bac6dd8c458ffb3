package natskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/ValidationHub/internal/domain"
	"github.com/Strob0t/ValidationHub/internal/domain/validation"
)

// maxCASRetries bounds the compare-and-swap retry loop in Update. Contention
// on a single action_id is rare (one submit, occasional reviews), so a small
// bound is plenty.
const maxCASRetries = 5

// Store implements store.RecordStore on a JetStream KV bucket. Records are
// stored JSON-encoded under their action_id; per-key atomicity comes from
// revision-checked updates.
type Store struct {
	kv jetstream.KeyValue
}

// NewStore creates a KV-backed record store.
func NewStore(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

// Put overwrites the record for its action_id.
func (s *Store) Put(ctx context.Context, rec *validation.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := s.kv.Put(ctx, rec.ActionID(), data); err != nil {
		return fmt.Errorf("put record %s: %w", rec.ActionID(), err)
	}
	return nil
}

// Get returns the record for the given action_id.
func (s *Store) Get(ctx context.Context, actionID string) (*validation.Record, error) {
	entry, err := s.kv.Get(ctx, actionID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("get record %s: %w", actionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get record %s: %w", actionID, err)
	}

	var rec validation.Record
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", actionID, err)
	}
	return &rec, nil
}

// Update performs a revision-checked read-modify-write, retrying on
// concurrent writers to the same key.
func (s *Store) Update(ctx context.Context, actionID string, fn func(*validation.Record) error) (*validation.Record, error) {
	for range maxCASRetries {
		entry, err := s.kv.Get(ctx, actionID)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				return nil, fmt.Errorf("update record %s: %w", actionID, domain.ErrNotFound)
			}
			return nil, fmt.Errorf("update record %s: %w", actionID, err)
		}

		var rec validation.Record
		if err := json.Unmarshal(entry.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", actionID, err)
		}
		if err := fn(&rec); err != nil {
			return nil, err
		}

		data, err := json.Marshal(&rec)
		if err != nil {
			return nil, fmt.Errorf("marshal record: %w", err)
		}

		_, err = s.kv.Update(ctx, actionID, data, entry.Revision())
		if err == nil {
			return &rec, nil
		}
		if !isWrongRevision(err) {
			return nil, fmt.Errorf("update record %s: %w", actionID, err)
		}
		// Lost the race; reload and retry.
	}
	return nil, fmt.Errorf("update record %s: %w", actionID, domain.ErrConflict)
}

// List scans the bucket and returns records keyed by action_id.
func (s *Store) List(ctx context.Context, status validation.Status) (map[string]*validation.Record, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return map[string]*validation.Record{}, nil
		}
		return nil, fmt.Errorf("list keys: %w", err)
	}

	out := make(map[string]*validation.Record, len(keys))
	for _, key := range keys {
		rec, err := s.Get(ctx, key)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue // deleted between Keys and Get
			}
			return nil, err
		}
		if status != "" && rec.Status != status {
			continue
		}
		out[key] = rec
	}
	return out, nil
}

func isWrongRevision(err error) bool {
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}
