// Package nats publishes hub events to JetStream subjects. This is the named
// reliability extension on top of best-effort webhook fanout: consumers that
// need replay or queuing subscribe to the stream instead of registering a
// webhook. Publishing is itself best-effort and never blocks a request.
package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/ValidationHub/internal/domain/validation"
)

// StreamName is the JetStream stream holding hub events.
const StreamName = "VALIDATION_EVENTS"

// Subjects by event type.
const (
	SubjectSubmitted = "validation.submitted"
	SubjectReviewed  = "validation.reviewed"
)

// Publisher writes events to JetStream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher ensures the event stream exists and returns a Publisher.
func NewPublisher(ctx context.Context, js jetstream.JetStream) (*Publisher, error) {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"validation.>"},
	})
	if err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", StreamName, err)
	}
	return &Publisher{js: js}, nil
}

// Publish writes the event to its subject.
func (p *Publisher) Publish(ctx context.Context, event validation.Event) error {
	subject := SubjectSubmitted
	if event.Event == validation.EventActionReviewed {
		subject = SubjectReviewed
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
