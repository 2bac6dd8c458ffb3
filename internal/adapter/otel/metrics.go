package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "validationhub"

// Metrics holds the hub's metric instruments. Delivery failures are
// observable only through logs and these counters, so they are the one
// place a dropped webhook leaves a trace.
type Metrics struct {
	DeliveriesAttempted metric.Int64Counter
	DeliveriesFailed    metric.Int64Counter
	DeliveriesInFlight  metric.Int64UpDownCounter
	DeliveryDuration    metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.DeliveriesAttempted, err = meter.Int64Counter("validationhub.deliveries.attempted",
		metric.WithDescription("Number of webhook delivery attempts"))
	if err != nil {
		return nil, err
	}

	m.DeliveriesFailed, err = meter.Int64Counter("validationhub.deliveries.failed",
		metric.WithDescription("Number of failed webhook deliveries"))
	if err != nil {
		return nil, err
	}

	m.DeliveriesInFlight, err = meter.Int64UpDownCounter("validationhub.deliveries.in_flight",
		metric.WithDescription("Dispatcher work currently in flight"))
	if err != nil {
		return nil, err
	}

	m.DeliveryDuration, err = meter.Float64Histogram("validationhub.delivery.duration_seconds",
		metric.WithDescription("Webhook delivery duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
