package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Strob0t/ValidationHub/internal/domain"
	"github.com/Strob0t/ValidationHub/internal/port/registry"
)

// SubscriberService handles webhook registration for agents and reviewers.
type SubscriberService struct {
	registry registry.SubscriberRegistry
}

// NewSubscriberService creates a SubscriberService.
func NewSubscriberService(reg registry.SubscriberRegistry) *SubscriberService {
	return &SubscriberService{registry: reg}
}

// RegisterAgent upserts the callback endpoint an agent wants review results
// delivered to.
func (s *SubscriberService) RegisterAgent(ctx context.Context, agentID, callbackURL string) error {
	if strings.TrimSpace(agentID) == "" {
		return fmt.Errorf("%w: agent_id is required", domain.ErrValidation)
	}
	if err := validateCallbackURL(callbackURL); err != nil {
		return err
	}
	if err := s.registry.PutAgent(ctx, agentID, callbackURL); err != nil {
		return fmt.Errorf("register agent webhook: %w", err)
	}
	slog.Info("agent webhook registered", "agent_id", agentID, "callback_url", callbackURL)
	return nil
}

// RegisterReviewer upserts the callback endpoint a reviewer wants new
// pending actions announced to.
func (s *SubscriberService) RegisterReviewer(ctx context.Context, reviewerID, callbackURL string) error {
	if strings.TrimSpace(reviewerID) == "" {
		return fmt.Errorf("%w: reviewer_id is required", domain.ErrValidation)
	}
	if err := validateCallbackURL(callbackURL); err != nil {
		return err
	}
	if err := s.registry.PutReviewer(ctx, reviewerID, callbackURL); err != nil {
		return fmt.Errorf("register reviewer webhook: %w", err)
	}
	slog.Info("reviewer webhook registered", "reviewer_id", reviewerID, "callback_url", callbackURL)
	return nil
}

// validateCallbackURL requires an absolute http(s) URL. The registry itself
// has no way to detect dead endpoints, so syntactic validation at
// registration time is the only gate.
func validateCallbackURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: callback_url is required", domain.ErrValidation)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: callback_url is not a valid URL", domain.ErrValidation)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: callback_url must be an absolute http(s) URL", domain.ErrValidation)
	}
	return nil
}
