package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/Strob0t/ValidationHub/internal/domain"
)

// Registry is an in-memory SubscriberRegistry.
type Registry struct {
	mu        sync.RWMutex
	agents    map[string]string
	reviewers map[string]string
}

// NewRegistry creates an empty in-memory subscriber registry.
func NewRegistry() *Registry {
	return &Registry{
		agents:    make(map[string]string),
		reviewers: make(map[string]string),
	}
}

// PutAgent upserts an agent's callback endpoint.
func (r *Registry) PutAgent(_ context.Context, agentID, callbackURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agentID] = callbackURL
	return nil
}

// PutReviewer upserts a reviewer's callback endpoint.
func (r *Registry) PutReviewer(_ context.Context, reviewerID, callbackURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviewers[reviewerID] = callbackURL
	return nil
}

// AgentEndpoint returns the registered endpoint for the agent.
func (r *Registry) AgentEndpoint(_ context.Context, agentID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	url, ok := r.agents[agentID]
	if !ok {
		return "", fmt.Errorf("agent %s: %w", agentID, domain.ErrNotFound)
	}
	return url, nil
}

// ReviewerEndpoints returns a snapshot of all reviewer endpoints.
func (r *Registry) ReviewerEndpoints(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	endpoints := make([]string, 0, len(r.reviewers))
	for _, url := range r.reviewers {
		endpoints = append(endpoints, url)
	}
	return endpoints, nil
}
