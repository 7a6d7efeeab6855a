package audit

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/contextkeys"
	"github.com/platinummonkey/tenancy/pkg/observability"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records one event. Implementations fill nothing in; use NewEvent.
	Log(ctx context.Context, event *AuditEvent) error

	// Close closes the logger and flushes any buffered logs
	Close() error
}

// NewEvent builds an event stamped with the current time and the request id
// and subject carried by ctx.
func NewEvent(ctx context.Context, eventType EventType, status EventStatus, resourceType ResourceType, resourceID string) *AuditEvent {
	return &AuditEvent{
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		Status:       status,
		SubjectID:    contextkeys.GetSubjectID(ctx),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    contextkeys.GetRequestID(ctx),
	}
}

// WithScope sets the tenant scope of the event
func (e *AuditEvent) WithScope(organizationID, branchID string) *AuditEvent {
	e.OrganizationID = organizationID
	e.BranchID = branchID
	return e
}

// WithSubject overrides the subject taken from the context
func (e *AuditEvent) WithSubject(subjectID string) *AuditEvent {
	e.SubjectID = subjectID
	return e
}

// WithMessage sets a human readable message
func (e *AuditEvent) WithMessage(message string) *AuditEvent {
	e.Message = message
	return e
}

// noOpLogger is a logger that does nothing
type noOpLogger struct{}

// NewNoOpLogger returns a logger that drops every event
func NewNoOpLogger() Logger {
	return noOpLogger{}
}

func (noOpLogger) Log(context.Context, *AuditEvent) error { return nil }

func (noOpLogger) Close() error { return nil }

// Record logs event. A failing audit destination never fails the request;
// the error goes to the application log instead.
func Record(ctx context.Context, logger Logger, event *AuditEvent) {
	if logger == nil {
		return
	}
	if err := logger.Log(ctx, event); err != nil {
		observability.FromContext(ctx).WithError(err).
			WithField("event_type", event.EventType).
			Warn("failed to write audit event")
	}
}

// Denied records a denial when err is a permission error and returns err
// unchanged, so callers can wrap an evaluator call:
//
//	if err := audit.Denied(ctx, log, eval.Permission(...), audit.ResourceTypeBranch, id, org, branch); err != nil {
//		return err
//	}
func Denied(ctx context.Context, logger Logger, err error, resourceType ResourceType, resourceID, organizationID, branchID string) error {
	if err != nil && errors.Is(err, apperr.ErrForbidden) {
		Record(ctx, logger, NewEvent(ctx, EventTypeAuthzAccessDenied, EventStatusDenied, resourceType, resourceID).
			WithScope(organizationID, branchID))
	}
	return err
}
