package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/ValidationHub/internal/domain"
)

// Registry implements registry.SubscriberRegistry on PostgreSQL.
type Registry struct {
	pool *pgxpool.Pool
}

// NewRegistry creates a Registry backed by the given connection pool.
func NewRegistry(pool *pgxpool.Pool) *Registry {
	return &Registry{pool: pool}
}

// PutAgent upserts an agent's callback endpoint.
func (r *Registry) PutAgent(ctx context.Context, agentID, callbackURL string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO agent_webhooks (agent_id, callback_url, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (agent_id) DO UPDATE SET callback_url = EXCLUDED.callback_url, updated_at = now()`,
		agentID, callbackURL)
	if err != nil {
		return fmt.Errorf("put agent webhook %s: %w", agentID, err)
	}
	return nil
}

// PutReviewer upserts a reviewer's callback endpoint.
func (r *Registry) PutReviewer(ctx context.Context, reviewerID, callbackURL string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO reviewer_webhooks (reviewer_id, callback_url, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (reviewer_id) DO UPDATE SET callback_url = EXCLUDED.callback_url, updated_at = now()`,
		reviewerID, callbackURL)
	if err != nil {
		return fmt.Errorf("put reviewer webhook %s: %w", reviewerID, err)
	}
	return nil
}

// AgentEndpoint returns the registered endpoint for the agent.
func (r *Registry) AgentEndpoint(ctx context.Context, agentID string) (string, error) {
	var url string
	err := r.pool.QueryRow(ctx,
		`SELECT callback_url FROM agent_webhooks WHERE agent_id = $1`, agentID).Scan(&url)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("agent %s: %w", agentID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("get agent webhook %s: %w", agentID, err)
	}
	return url, nil
}

// ReviewerEndpoints returns a snapshot of all reviewer endpoints.
func (r *Registry) ReviewerEndpoints(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT callback_url FROM reviewer_webhooks`)
	if err != nil {
		return nil, fmt.Errorf("list reviewer webhooks: %w", err)
	}
	defer rows.Close()

	var endpoints []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan reviewer webhook: %w", err)
		}
		endpoints = append(endpoints, url)
	}
	return endpoints, rows.Err()
}
