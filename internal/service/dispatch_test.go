package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	vhotel "github.com/Strob0t/ValidationHub/internal/adapter/otel"
	"github.com/Strob0t/ValidationHub/internal/domain/validation"
)

// mockSender implements delivery.Sender for testing.
type mockSender struct {
	mu      sync.Mutex
	sent    map[string][]validation.Event // endpoint -> events
	failOn  map[string]error
	delay   time.Duration
	started chan struct{} // closed-ish: receives one signal per Send start
}

func newMockSender() *mockSender {
	return &mockSender{
		sent:   make(map[string][]validation.Event),
		failOn: make(map[string]error),
	}
}

func (m *mockSender) Send(_ context.Context, endpoint string, event validation.Event) error {
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failOn[endpoint]; ok {
		return err
	}
	m.sent[endpoint] = append(m.sent[endpoint], event)
	return nil
}

func (m *mockSender) deliveries(endpoint string) []validation.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]validation.Event(nil), m.sent[endpoint]...)
}

// mockPublisher implements EventPublisher for testing.
type mockPublisher struct {
	mu     sync.Mutex
	events []validation.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event validation.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func waitAll(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("dispatcher did not drain: %v", err)
	}
}

func TestDispatchFanout(t *testing.T) {
	sender := newMockSender()
	d := NewDispatcher(sender, nil, nil, time.Second, 8)

	evt := validation.NewPendingActionEvent("a1", "v1")
	d.Dispatch(context.Background(), evt, []string{"http://one", "http://two", "http://three"})
	waitAll(t, d)

	for _, ep := range []string{"http://one", "http://two", "http://three"} {
		got := sender.deliveries(ep)
		if len(got) != 1 {
			t.Fatalf("expected exactly 1 delivery to %s, got %d", ep, len(got))
		}
		if got[0].ActionID != "a1" || got[0].ValidationID != "v1" {
			t.Fatalf("wrong payload delivered to %s: %+v", ep, got[0])
		}
	}
}

func TestDispatchFailureIsolation(t *testing.T) {
	sender := newMockSender()
	sender.failOn["http://down"] = errors.New("connection refused")
	d := NewDispatcher(sender, nil, nil, time.Second, 8)

	d.Dispatch(context.Background(), validation.Event{Event: "x", ActionID: "a1"},
		[]string{"http://down", "http://up"})
	waitAll(t, d)

	if len(sender.deliveries("http://up")) != 1 {
		t.Fatal("healthy endpoint must still receive its delivery")
	}
}

func TestDispatchEmptyTargets(t *testing.T) {
	sender := newMockSender()
	d := NewDispatcher(sender, nil, nil, time.Second, 8)

	// No targets is a no-op, not an error.
	d.Dispatch(context.Background(), validation.Event{Event: "x"}, nil)
	waitAll(t, d)
}

func TestDispatchDuplicateTargets(t *testing.T) {
	sender := newMockSender()
	d := NewDispatcher(sender, nil, nil, time.Second, 8)

	d.Dispatch(context.Background(), validation.Event{Event: "x", ActionID: "a1"},
		[]string{"http://shared", "http://shared"})
	waitAll(t, d)

	if got := len(sender.deliveries("http://shared")); got != 2 {
		t.Fatalf("duplicate targets get duplicate deliveries, got %d", got)
	}
}

func TestDispatchDoesNotBlockCaller(t *testing.T) {
	sender := newMockSender()
	sender.delay = 500 * time.Millisecond
	d := NewDispatcher(sender, nil, nil, 5*time.Second, 8)

	start := time.Now()
	d.Dispatch(context.Background(), validation.Event{Event: "x"},
		[]string{"http://slow1", "http://slow2", "http://slow3"})
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Dispatch blocked the caller for %v", elapsed)
	}

	waitAll(t, d)
}

func TestDispatchConcurrentDeliveries(t *testing.T) {
	// With N slow targets, the total drain time must be far below N times
	// the per-delivery latency.
	sender := newMockSender()
	sender.delay = 200 * time.Millisecond
	d := NewDispatcher(sender, nil, nil, 5*time.Second, 8)

	targets := []string{"http://s1", "http://s2", "http://s3", "http://s4"}
	start := time.Now()
	d.Dispatch(context.Background(), validation.Event{Event: "x"}, targets)
	waitAll(t, d)

	if elapsed := time.Since(start); elapsed > 600*time.Millisecond {
		t.Fatalf("deliveries ran sequentially: %v for %d targets", elapsed, len(targets))
	}
}

func TestDispatchSurvivesRequestCancellation(t *testing.T) {
	sender := newMockSender()
	sender.started = make(chan struct{}, 1)
	sender.delay = 100 * time.Millisecond
	d := NewDispatcher(sender, nil, nil, 5*time.Second, 8)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, validation.Event{Event: "x", ActionID: "a1"}, []string{"http://one"})
	<-sender.started
	cancel() // simulates the triggering request completing

	waitAll(t, d)
	if len(sender.deliveries("http://one")) != 1 {
		t.Fatal("delivery must complete after the request context is cancelled")
	}
}

func TestDispatchPublishesToStream(t *testing.T) {
	sender := newMockSender()
	pub := &mockPublisher{}
	d := NewDispatcher(sender, pub, nil, time.Second, 8)

	d.Dispatch(context.Background(), validation.Event{Event: "x"}, nil)
	waitAll(t, d)

	if pub.count() != 1 {
		t.Fatalf("expected 1 published event, got %d", pub.count())
	}
}

func TestDispatchPublisherFailureIsolated(t *testing.T) {
	sender := newMockSender()
	pub := &mockPublisher{err: errors.New("stream down")}
	d := NewDispatcher(sender, pub, nil, time.Second, 8)

	d.Dispatch(context.Background(), validation.Event{Event: "x"}, []string{"http://up"})
	waitAll(t, d)

	if len(sender.deliveries("http://up")) != 1 {
		t.Fatal("publisher failure must not affect webhook delivery")
	}
}

// sumValue collects the named instrument from rm and returns the summed
// datapoint value.
func sumValue(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s has unexpected data type %T", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return 0
}

func TestDispatchRecordsDeliveryMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))

	metrics, err := vhotel.NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	sender := newMockSender()
	sender.failOn["http://bad"] = errors.New("connection refused")
	d := NewDispatcher(sender, nil, nil, time.Second, 8).WithMetrics(metrics)

	evt := validation.NewPendingActionEvent("a1", "v1")
	d.Dispatch(context.Background(), evt, []string{"http://good", "http://bad"})
	waitAll(t, d)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	if got := sumValue(t, &rm, "validationhub.deliveries.attempted"); got != 2 {
		t.Errorf("expected 2 attempted deliveries, got %d", got)
	}
	if got := sumValue(t, &rm, "validationhub.deliveries.failed"); got != 1 {
		t.Errorf("expected 1 failed delivery, got %d", got)
	}
	if got := sumValue(t, &rm, "validationhub.deliveries.in_flight"); got != 0 {
		t.Errorf("in-flight gauge should return to 0 after drain, got %d", got)
	}
}
