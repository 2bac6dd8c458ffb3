// Package delivery defines the outbound notification port (interface).
package delivery

import (
	"context"

	"github.com/Strob0t/ValidationHub/internal/domain/validation"
)

// Sender performs a single delivery attempt of an event to one endpoint.
// A non-nil error means the attempt failed (network error, timeout, or
// non-success response); the dispatcher treats all failures the same way.
type Sender interface {
	Send(ctx context.Context, endpoint string, event validation.Event) error
}
