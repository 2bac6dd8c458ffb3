package natskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/ValidationHub/internal/domain"
)

// Registry implements registry.SubscriberRegistry on two KV buckets, one per
// subscriber kind. Values are the raw callback URLs.
type Registry struct {
	agents    jetstream.KeyValue
	reviewers jetstream.KeyValue
}

// NewRegistry creates a KV-backed subscriber registry.
func NewRegistry(agents, reviewers jetstream.KeyValue) *Registry {
	return &Registry{agents: agents, reviewers: reviewers}
}

// PutAgent upserts an agent's callback endpoint.
func (r *Registry) PutAgent(ctx context.Context, agentID, callbackURL string) error {
	if _, err := r.agents.Put(ctx, agentID, []byte(callbackURL)); err != nil {
		return fmt.Errorf("put agent webhook %s: %w", agentID, err)
	}
	return nil
}

// PutReviewer upserts a reviewer's callback endpoint.
func (r *Registry) PutReviewer(ctx context.Context, reviewerID, callbackURL string) error {
	if _, err := r.reviewers.Put(ctx, reviewerID, []byte(callbackURL)); err != nil {
		return fmt.Errorf("put reviewer webhook %s: %w", reviewerID, err)
	}
	return nil
}

// AgentEndpoint returns the registered endpoint for the agent.
func (r *Registry) AgentEndpoint(ctx context.Context, agentID string) (string, error) {
	entry, err := r.agents.Get(ctx, agentID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return "", fmt.Errorf("agent %s: %w", agentID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("get agent webhook %s: %w", agentID, err)
	}
	return string(entry.Value()), nil
}

// ReviewerEndpoints returns a snapshot of all reviewer endpoints.
func (r *Registry) ReviewerEndpoints(ctx context.Context) ([]string, error) {
	keys, err := r.reviewers.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list reviewer webhooks: %w", err)
	}

	endpoints := make([]string, 0, len(keys))
	for _, key := range keys {
		entry, err := r.reviewers.Get(ctx, key)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("get reviewer webhook %s: %w", key, err)
		}
		endpoints = append(endpoints, string(entry.Value()))
	}
	return endpoints, nil
}
