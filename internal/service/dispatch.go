// Package service contains the application services: the validation
// lifecycle engine, subscriber registration, and the notification dispatcher.
package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	vhotel "github.com/Strob0t/ValidationHub/internal/adapter/otel"
	"github.com/Strob0t/ValidationHub/internal/adapter/ws"
	"github.com/Strob0t/ValidationHub/internal/domain/validation"
	"github.com/Strob0t/ValidationHub/internal/port/delivery"
)

// EventPublisher is the optional stream-publishing hook (NATS JetStream).
type EventPublisher interface {
	Publish(ctx context.Context, event validation.Event) error
}

// Dispatcher fans an event out to a set of webhook endpoints: best-effort,
// at most one attempt per target, every target independent. The caller never
// waits for deliveries; Dispatch returns as soon as the attempts are started.
type Dispatcher struct {
	sender    delivery.Sender
	publisher EventPublisher  // may be nil
	feed      *ws.Feed        // may be nil
	metrics   *vhotel.Metrics // may be nil
	sem       *semaphore.Weighted
	timeout   time.Duration

	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// NewDispatcher creates a Dispatcher. timeout bounds each delivery attempt;
// maxConcurrent bounds how many attempts run at once across all events.
// publisher and feed are optional side channels fed once per event.
func NewDispatcher(sender delivery.Sender, publisher EventPublisher, feed *ws.Feed, timeout time.Duration, maxConcurrent int64) *Dispatcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Dispatcher{
		sender:    sender,
		publisher: publisher,
		feed:      feed,
		sem:       semaphore.NewWeighted(maxConcurrent),
		timeout:   timeout,
	}
}

// WithMetrics attaches delivery instruments to the dispatcher.
func (d *Dispatcher) WithMetrics(m *vhotel.Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// Dispatch starts one delivery attempt per target and returns immediately.
// Failures are logged and isolated: they reach neither the caller nor the
// other targets. Duplicate targets get duplicate deliveries; an empty target
// set only feeds the side channels.
func (d *Dispatcher) Dispatch(ctx context.Context, event validation.Event, targets []string) {
	// Deliveries must outlive the triggering request, so detach from its
	// cancellation while keeping its values (request ID, trace context).
	base := context.WithoutCancel(ctx)

	d.track(func() {
		if d.feed != nil {
			fctx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			d.feed.Broadcast(fctx, event)
		}
	})

	if d.publisher != nil {
		d.track(func() {
			pctx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			if err := d.publisher.Publish(pctx, event); err != nil {
				slog.Warn("event publish failed",
					"event", event.Event,
					"action_id", event.ActionID,
					"error", err,
				)
			}
		})
	}

	for _, endpoint := range targets {
		d.track(func() {
			if err := d.sem.Acquire(base, 1); err != nil {
				return
			}
			defer d.sem.Release(1)

			sctx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()

			start := time.Now()
			if d.metrics != nil {
				d.metrics.DeliveriesAttempted.Add(sctx, 1)
				defer func() {
					d.metrics.DeliveryDuration.Record(sctx, time.Since(start).Seconds())
				}()
			}

			if err := d.sender.Send(sctx, endpoint, event); err != nil {
				if d.metrics != nil {
					d.metrics.DeliveriesFailed.Add(sctx, 1)
				}
				slog.Warn("webhook delivery failed",
					"event", event.Event,
					"action_id", event.ActionID,
					"endpoint", endpoint,
					"error", err,
				)
				return
			}
			slog.Debug("webhook delivered",
				"event", event.Event,
				"action_id", event.ActionID,
				"endpoint", endpoint,
			)
		})
	}
}

// track runs fn on its own goroutine under the in-flight bookkeeping.
func (d *Dispatcher) track(fn func()) {
	d.wg.Add(1)
	d.inFlight.Add(1)
	if d.metrics != nil {
		d.metrics.DeliveriesInFlight.Add(context.Background(), 1)
	}
	go func() {
		defer d.wg.Done()
		defer d.inFlight.Add(-1)
		if d.metrics != nil {
			defer d.metrics.DeliveriesInFlight.Add(context.Background(), -1)
		}
		fn()
	}()
}

// InFlight returns the number of deliveries currently in progress.
func (d *Dispatcher) InFlight() int64 {
	return d.inFlight.Load()
}

// Wait blocks until all in-flight deliveries finish or ctx expires. Used
// during graceful shutdown.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
