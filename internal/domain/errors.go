// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates the caller supplied malformed input.
// Wrap with context: fmt.Errorf("%w: agent_id is required", domain.ErrValidation).
var ErrValidation = errors.New("validation failed")
