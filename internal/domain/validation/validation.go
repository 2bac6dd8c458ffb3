// Package validation defines the core domain types of the hub: the
// validation record tracking one submitted action, its review lifecycle,
// and the outbound notification events.
package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/ValidationHub/internal/domain"
)

// Status is the review state of a validation record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// SubmitRequest is the immutable snapshot of an agent's submission.
// It is captured at submission time and never mutated afterwards.
type SubmitRequest struct {
	AgentID    string         `json:"agent_id"`
	UserID     string         `json:"user_id"`
	ActionID   string         `json:"action_id"`
	ActionType string         `json:"action_type"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Validate checks that all required submission fields are present.
func (r *SubmitRequest) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"agent_id", r.AgentID},
		{"user_id", r.UserID},
		{"action_id", r.ActionID},
		{"action_type", r.ActionType},
		{"content", r.Content},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrValidation, f.name)
		}
	}
	return nil
}

// Record tracks one action's review state. Keyed by the action_id of the
// embedded request; re-submitting the same action_id overwrites the record
// (documented, intentional).
type Record struct {
	ValidationID string        `json:"validation_id"`
	Status       Status        `json:"status"`
	Feedback     string        `json:"feedback,omitempty"`
	Request      SubmitRequest `json:"request"`
	SubmittedAt  time.Time     `json:"submitted_at"`
	ReviewedAt   *time.Time    `json:"reviewed_at,omitempty"`
}

// ActionID returns the record's primary key.
func (r *Record) ActionID() string {
	return r.Request.ActionID
}

// NewRecord builds a pending record for the given submission with a fresh
// validation ID.
func NewRecord(req SubmitRequest) *Record {
	return &Record{
		ValidationID: NewValidationID(),
		Status:       StatusPending,
		Request:      req,
		SubmittedAt:  time.Now().UTC(),
	}
}

// NewValidationID generates an external validation handle, e.g. "val_1a2b3c4d".
// Never reused across records.
func NewValidationID() string {
	return "val_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Review is a reviewer's decision on a pending record.
type Review struct {
	Status   Status `json:"status"`
	Feedback string `json:"feedback,omitempty"`
}

// Validate enforces that the review outcome is one of the accepted terminal
// states. Anything else is rejected before state mutation.
func (r *Review) Validate() error {
	switch r.Status {
	case StatusApproved, StatusRejected:
		return nil
	default:
		return fmt.Errorf("%w: status must be %q or %q", domain.ErrValidation, StatusApproved, StatusRejected)
	}
}
