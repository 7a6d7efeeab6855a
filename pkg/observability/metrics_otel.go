package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds the OpenTelemetry instruments recorded by the lifecycle
// services. They are exported through the global meter provider set up by
// InitOTel and are no-ops when OpenTelemetry is disabled.
type OTelMetrics struct {
	relationTransitions metric.Int64Counter
	cascadeDuration     metric.Float64Histogram
}

// NewOTelMetrics creates the instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	return NewOTelMetricsWithMeter(otel.Meter("github.com/platinummonkey/tenancy"))
}

func NewOTelMetricsWithMeter(meter metric.Meter) (*OTelMetrics, error) {
	m := &OTelMetrics{}
	var err error

	m.relationTransitions, err = meter.Int64Counter(
		"tenancy.relation.transitions",
		metric.WithDescription("Relation lifecycle transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create relation transitions counter: %w", err)
	}

	m.cascadeDuration, err = meter.Float64Histogram(
		"tenancy.cascade.duration",
		metric.WithDescription("Time spent running dependent deletes"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cascade duration histogram: %w", err)
	}

	return m, nil
}

// RecordRelationTransition counts one transition such as "requested",
// "invited", "accepted" or "removed".
func (m *OTelMetrics) RecordRelationTransition(ctx context.Context, transition string) {
	if m == nil {
		return
	}
	m.relationTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("transition", transition)))
}

func (m *OTelMetrics) RecordCascadeDuration(ctx context.Context, entity string, d time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.cascadeDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.Bool("failed", failed),
	))
}
