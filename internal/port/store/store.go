// Package store defines the record store port (interface).
package store

import (
	"context"

	"github.com/Strob0t/ValidationHub/internal/domain/validation"
)

// RecordStore is the port interface for validation record persistence.
// Records are keyed by action_id. Implementations must provide per-key
// atomicity: a concurrent Put and Update against the same key must not
// interleave into a corrupted record. No cross-key guarantees are required;
// List may return a snapshot that is stale by the time it is read.
type RecordStore interface {
	// Put stores the record under its action_id, unconditionally
	// overwriting any existing record for that key.
	Put(ctx context.Context, rec *validation.Record) error

	// Get returns the record for the given action_id, or domain.ErrNotFound.
	Get(ctx context.Context, actionID string) (*validation.Record, error)

	// Update applies fn to the stored record as an atomic read-modify-write
	// and returns the updated record. Returns domain.ErrNotFound when no
	// record exists for the key. An error from fn aborts the update.
	Update(ctx context.Context, actionID string, fn func(*validation.Record) error) (*validation.Record, error)

	// List returns all records keyed by action_id, restricted to the given
	// status when it is non-empty.
	List(ctx context.Context, status validation.Status) (map[string]*validation.Record, error)
}
