package middleware

import (
	"context"
	"net/http"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/auth"
	"github.com/platinummonkey/tenancy/pkg/contextkeys"
	"github.com/platinummonkey/tenancy/pkg/httputil"
)

// Authenticator verifies bearer tokens for one audience
type Authenticator struct {
	tokens   *auth.TokenManager
	audience auth.Audience
}

// NewAuthenticator creates an authenticator for user or admin tokens
func NewAuthenticator(tokens *auth.TokenManager, audience auth.Audience) *Authenticator {
	return &Authenticator{
		tokens:   tokens,
		audience: audience,
	}
}

// Handler rejects requests without a valid token with 401 and stores the
// subject in the request context otherwise.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httputil.WriteError(w, r, apperr.Unauthorized("Not authenticated"))
			return
		}

		authCtx, err := a.tokens.Verify(header, a.audience)
		if err != nil {
			httputil.WriteError(w, r, apperr.Unauthorized("Could not validate credentials"))
			return
		}

		ctx := context.WithValue(r.Context(), contextkeys.AuthKey, authCtx)
		ctx = contextkeys.WithSubjectID(ctx, authCtx.SubjectID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthFromContext returns the authenticated subject, or nil
func AuthFromContext(ctx context.Context) *auth.AuthContext {
	authCtx, ok := ctx.Value(contextkeys.AuthKey).(*auth.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// SubjectID returns the authenticated subject id. Handlers behind the
// Authenticator can rely on it being set.
func SubjectID(r *http.Request) (string, error) {
	authCtx := AuthFromContext(r.Context())
	if authCtx == nil || authCtx.SubjectID == "" {
		return "", apperr.Unauthorized("Not authenticated")
	}
	return authCtx.SubjectID, nil
}
