// Package contextkeys provides centralized context key definitions
//
// All context keys shared between packages are defined here so that the
// middleware that sets a value and the code that reads it agree on the key.
//
//	ctx = context.WithValue(ctx, contextkeys.AuthKey, authCtx)
//	authCtx, _ := ctx.Value(contextkeys.AuthKey).(*auth.AuthContext)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthKey contains *auth.AuthContext
	// Set by: middleware.Authenticator (pkg/middleware/auth.go)
	// Required by: every protected handler
	AuthKey Key = "auth_context"

	// ScopeKey contains auth.Scope
	// Set by: middleware.RequireScope (pkg/middleware/scope.go)
	// Required by: scope-header endpoints (relations, telegram groups, registrations)
	ScopeKey Key = "scope"

	// RequestIDKey contains the request id string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: logger, audit trail
	RequestIDKey Key = "request_id"

	// SubjectIDKey contains the authenticated user or admin id
	// Set by: middleware.Authenticator
	// Used by: logger, audit trail
	SubjectIDKey Key = "subject_id"

	// LoggerKey contains *observability.Logger
	LoggerKey Key = "logger"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func WithSubjectID(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, SubjectIDKey, subjectID)
}

func GetSubjectID(ctx context.Context) string {
	if subjectID, ok := ctx.Value(SubjectIDKey).(string); ok {
		return subjectID
	}
	return ""
}
