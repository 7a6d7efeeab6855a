package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogrusLogger writes one JSON line per event through logrus. Denied and
// failed events are logged at warn level, everything else at info.
type LogrusLogger struct {
	logger *logrus.Logger
	closer io.Closer
	mu     sync.Mutex
}

// NewLogrusLogger writes audit events to w
func NewLogrusLogger(w io.Writer) *LogrusLogger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "message",
		},
	})
	return &LogrusLogger{logger: logger}
}

// NewFileLogger appends audit events to the file at path, creating parent
// directories as needed.
func NewFileLogger(path string) (*LogrusLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	l := NewLogrusLogger(file)
	l.closer = file
	return l, nil
}

// Log writes the event
func (l *LogrusLogger) Log(_ context.Context, event *AuditEvent) error {
	fields := logrus.Fields{
		"audit":      true,
		"event_type": event.EventType,
		"status":     event.Status,
	}
	optional := map[string]string{
		"subject_id":      event.SubjectID,
		"resource_type":   string(event.ResourceType),
		"resource_id":     event.ResourceID,
		"organization_id": event.OrganizationID,
		"branch_id":       event.BranchID,
		"request_id":      event.RequestID,
	}
	for k, v := range optional {
		if v != "" {
			fields[k] = v
		}
	}
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}

	entry := l.logger.WithFields(fields).WithTime(event.Timestamp)
	message := event.Message
	if message == "" {
		message = string(event.EventType)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	switch event.Status {
	case EventStatusDenied, EventStatusFailure:
		entry.Warn(message)
	default:
		entry.Info(message)
	}
	return nil
}

// Close closes the underlying file, if any
func (l *LogrusLogger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
