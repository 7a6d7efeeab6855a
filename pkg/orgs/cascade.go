package orgs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/tenancy/pkg/observability"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

// CascadeStep deletes one kind of dependent row
type CascadeStep struct {
	Name   string
	Delete func(ctx context.Context) (int64, error)
}

// ScopeStep deletes every row of d whose field equals id
func ScopeStep(name string, d storage.ScopedDeleter, field storage.ScopeField, id string) CascadeStep {
	return CascadeStep{
		Name: name,
		Delete: func(ctx context.Context) (int64, error) {
			return d.DeleteByScope(ctx, field, id)
		},
	}
}

// CascadeRecorder counts dependent deletes
type CascadeRecorder interface {
	RecordCascade(entity, step string, rows int64, err error)
}

// CascadeResult reports what the dependent steps did. Err joins every
// step failure and is nil when all steps succeeded.
type CascadeResult struct {
	Deleted map[string]int64
	Err     error
}

// Cascade deletes a primary row and then its dependents
type Cascade struct {
	recorder CascadeRecorder
	otel     *observability.OTelMetrics
}

// NewCascade creates a cascade; both recorders may be nil
func NewCascade(recorder CascadeRecorder, otelMetrics *observability.OTelMetrics) *Cascade {
	return &Cascade{recorder: recorder, otel: otelMetrics}
}

// Run deletes the primary row first and returns its error unchanged. Once
// the primary delete succeeded every step runs in order, even after a
// failing one; step failures are logged and counted but do not turn the
// delete into an error.
func (c *Cascade) Run(ctx context.Context, entity, id string, primary func(ctx context.Context) error, steps ...CascadeStep) (*CascadeResult, error) {
	ctx, span := tracer.Start(ctx, "cascade."+entity, trace.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("entity.id", id),
	))
	defer span.End()

	start := time.Now()
	if err := primary(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "primary delete failed")
		return nil, err
	}

	logger := observability.FromContext(ctx).WithFields(map[string]interface{}{
		"entity":    entity,
		"entity_id": id,
	})

	result := &CascadeResult{Deleted: make(map[string]int64, len(steps))}
	var errs []error
	for _, step := range steps {
		rows, err := step.Delete(ctx)
		if c.recorder != nil {
			c.recorder.RecordCascade(entity, step.Name, rows, err)
		}
		if err != nil {
			logger.WithError(err).WithField("step", step.Name).Error("cascade step failed")
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
			continue
		}
		result.Deleted[step.Name] = rows
	}

	result.Err = errors.Join(errs...)
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetAttributes(attribute.Int("cascade.failed_steps", len(errs)))
	}
	c.otel.RecordCascadeDuration(ctx, entity, time.Since(start), result.Err != nil)
	return result, nil
}
