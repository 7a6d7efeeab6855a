package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/contextkeys"
)

func TestNewEvent_ReadsContext(t *testing.T) {
	ctx := contextkeys.WithRequestID(context.Background(), "req-1")
	ctx = contextkeys.WithSubjectID(ctx, "user-1")

	event := NewEvent(ctx, EventTypeDataCreate, EventStatusSuccess, ResourceTypeOrganization, "org-1").
		WithScope("org-1", "br-1").
		WithMessage("organization created")

	assert.Equal(t, "req-1", event.RequestID)
	assert.Equal(t, "user-1", event.SubjectID)
	assert.Equal(t, "org-1", event.OrganizationID)
	assert.Equal(t, "br-1", event.BranchID)
	assert.False(t, event.Timestamp.IsZero())

	assert.Equal(t, "admin-9", event.WithSubject("admin-9").SubjectID)
}

func TestLogrusLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusLogger(&buf)

	event := NewEvent(context.Background(), EventTypeAuthzAccessDenied, EventStatusDenied, ResourceTypeBranch, "br-1").
		WithSubject("user-2").
		WithScope("org-1", "br-1")
	event.Metadata = map[string]interface{}{"check": "branch_delete"}
	require.NoError(t, logger.Log(context.Background(), event))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warning", line["level"])
	assert.Equal(t, "authz.access_denied", line["message"])
	assert.Equal(t, "user-2", line["subject_id"])
	assert.Equal(t, "branch", line["resource_type"])
	assert.Equal(t, "org-1", line["organization_id"])
	assert.Equal(t, "branch_delete", line["meta_check"])
	assert.NotContains(t, line, "request_id")
	require.NoError(t, logger.Close())
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "audit.log")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, logger.Log(ctx, NewEvent(ctx, EventTypeAuthSignin, EventStatusSuccess, ResourceTypeUser, "u1")))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event_type":"auth.signin"`)
}

type failingLogger struct{}

func (failingLogger) Log(context.Context, *AuditEvent) error { return errors.New("disk full") }
func (failingLogger) Close() error                           { return errors.New("close failed") }

func TestMultiLogger(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiLogger(failingLogger{}, NewLogrusLogger(&buf), NewNoOpLogger())

	ctx := context.Background()
	err := multi.Log(ctx, NewEvent(ctx, EventTypeDataDelete, EventStatusSuccess, ResourceTypeRelation, "r1"))
	assert.EqualError(t, err, "disk full")
	assert.Contains(t, buf.String(), "data.delete", "later destinations still receive the event")

	assert.EqualError(t, multi.Close(), "close failed")
}

type captureLogger struct{ events []*AuditEvent }

func (c *captureLogger) Log(_ context.Context, e *AuditEvent) error {
	c.events = append(c.events, e)
	return nil
}
func (c *captureLogger) Close() error { return nil }

func TestDenied(t *testing.T) {
	ctx := contextkeys.WithSubjectID(context.Background(), "user-1")
	capture := &captureLogger{}

	assert.NoError(t, Denied(ctx, capture, nil, ResourceTypeBranch, "b1", "o1", "b1"))
	assert.Empty(t, capture.events)

	other := errors.New("db down")
	assert.Same(t, other, Denied(ctx, capture, other, ResourceTypeBranch, "b1", "o1", "b1"))
	assert.Empty(t, capture.events, "only permission errors are audited")

	forbidden := apperr.Forbidden("")
	assert.Same(t, forbidden, Denied(ctx, capture, forbidden, ResourceTypeBranch, "b1", "o1", "b1"))
	require.Len(t, capture.events, 1)
	assert.Equal(t, EventTypeAuthzAccessDenied, capture.events[0].EventType)
	assert.Equal(t, "user-1", capture.events[0].SubjectID)
	assert.Equal(t, "o1", capture.events[0].OrganizationID)
}

func TestRecord_SwallowsErrors(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		Record(ctx, failingLogger{}, NewEvent(ctx, EventTypeDataCreate, EventStatusSuccess, ResourceTypeUser, "u"))
		Record(ctx, nil, NewEvent(ctx, EventTypeDataCreate, EventStatusSuccess, ResourceTypeUser, "u"))
	})
}
