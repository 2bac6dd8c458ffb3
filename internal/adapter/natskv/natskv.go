// Package natskv implements the record store and subscriber registry ports
// on NATS JetStream key-value buckets, giving the hub a durable backend
// shared across replicas.
package natskv

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Bucket names used by the hub.
const (
	BucketRecords   = "validations"
	BucketAgents    = "agent_webhooks"
	BucketReviewers = "reviewer_webhooks"
)

// Connect establishes a NATS connection and a JetStream context.
func Connect(_ context.Context, url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	return nc, js, nil
}

// EnsureBucket creates the KV bucket if it does not exist yet.
func EnsureBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: name})
	if err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", name, err)
	}
	return kv, nil
}
