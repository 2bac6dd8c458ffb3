// Package registry defines the subscriber registry port (interface).
package registry

import "context"

// SubscriberRegistry maps agent and reviewer identifiers to webhook callback
// endpoints. Both mappings are last-write-wins per identifier; entries never
// expire on their own. Multiple identifiers may point at the same URL.
type SubscriberRegistry interface {
	// PutAgent upserts the callback endpoint for an agent.
	PutAgent(ctx context.Context, agentID, callbackURL string) error

	// PutReviewer upserts the callback endpoint for a reviewer.
	PutReviewer(ctx context.Context, reviewerID, callbackURL string) error

	// AgentEndpoint returns the registered endpoint for the agent, or
	// domain.ErrNotFound when it has never registered.
	AgentEndpoint(ctx context.Context, agentID string) (string, error)

	// ReviewerEndpoints returns a point-in-time snapshot of all registered
	// reviewer endpoints. Registrations that land after the snapshot is
	// taken must not affect the returned slice.
	ReviewerEndpoints(ctx context.Context) ([]string, error)
}
