package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/ValidationHub/internal/domain"
	"github.com/Strob0t/ValidationHub/internal/domain/validation"
	"github.com/Strob0t/ValidationHub/internal/port/registry"
	"github.com/Strob0t/ValidationHub/internal/port/store"
)

// LifecycleService owns the validation record state machine. It is the sole
// writer of the record store; notification delivery happens off the request
// path through the Dispatcher.
type LifecycleService struct {
	store      store.RecordStore
	registry   registry.SubscriberRegistry
	dispatcher *Dispatcher
}

// NewLifecycleService wires the lifecycle engine to its collaborators.
func NewLifecycleService(st store.RecordStore, reg registry.SubscriberRegistry, d *Dispatcher) *LifecycleService {
	return &LifecycleService{store: st, registry: reg, dispatcher: d}
}

// Submit stores a pending record for the request and notifies all registered
// reviewer endpoints. Returns once the store write completes; delivery
// outcomes are invisible to the caller. Re-submitting an action_id
// overwrites the previous record.
func (s *LifecycleService) Submit(ctx context.Context, req validation.SubmitRequest) (*validation.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rec := validation.NewRecord(req)
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("submit %s: %w", req.ActionID, err)
	}

	slog.Info("action submitted",
		"action_id", req.ActionID,
		"validation_id", rec.ValidationID,
		"agent_id", req.AgentID,
		"action_type", req.ActionType,
	)

	endpoints, err := s.registry.ReviewerEndpoints(ctx)
	if err != nil {
		// Reviewers miss this event, but the submission itself stands.
		slog.Warn("reviewer endpoint lookup failed", "action_id", req.ActionID, "error", err)
		endpoints = nil
	}
	s.dispatcher.Dispatch(ctx, validation.NewPendingActionEvent(req.ActionID, rec.ValidationID), endpoints)

	return rec, nil
}

// Status returns the record for the given action_id.
func (s *LifecycleService) Status(ctx context.Context, actionID string) (*validation.Record, error) {
	return s.store.Get(ctx, actionID)
}

// Review records a decision on the action and notifies the submitting
// agent's endpoint when one is registered. Repeated reviews overwrite the
// previous decision (last review wins, no history).
func (s *LifecycleService) Review(ctx context.Context, actionID string, review validation.Review) (*validation.Record, error) {
	if err := review.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec, err := s.store.Update(ctx, actionID, func(r *validation.Record) error {
		r.Status = review.Status
		r.Feedback = review.Feedback
		r.ReviewedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("action reviewed",
		"action_id", actionID,
		"status", review.Status,
		"agent_id", rec.Request.AgentID,
	)

	event := validation.ActionReviewedEvent(actionID, review.Status, review.Feedback)
	endpoint, err := s.registry.AgentEndpoint(ctx, rec.Request.AgentID)
	switch {
	case err == nil:
		s.dispatcher.Dispatch(ctx, event, []string{endpoint})
	case errors.Is(err, domain.ErrNotFound):
		// Unregistered agent is not an error; the event still reaches the
		// side channels (live feed, stream).
		s.dispatcher.Dispatch(ctx, event, nil)
	default:
		slog.Warn("agent endpoint lookup failed", "action_id", actionID, "error", err)
		s.dispatcher.Dispatch(ctx, event, nil)
	}

	return rec, nil
}

// List returns all records, restricted to the given status when non-empty.
func (s *LifecycleService) List(ctx context.Context, status validation.Status) (map[string]*validation.Record, error) {
	return s.store.List(ctx, status)
}
