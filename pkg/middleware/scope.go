package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/auth"
	"github.com/platinummonkey/tenancy/pkg/contextkeys"
	"github.com/platinummonkey/tenancy/pkg/httputil"
)

const (
	OrganizationHeader = "X-Organization-ID"
	BranchHeader       = "X-Branch-ID"
)

// ScopeFromHeaders reads the tenant scope headers. The branch header is
// only checked when requireBranch is set.
func ScopeFromHeaders(r *http.Request, requireBranch bool) (auth.Scope, error) {
	scope := auth.Scope{
		OrganizationID: strings.TrimSpace(r.Header.Get(OrganizationHeader)),
		BranchID:       strings.TrimSpace(r.Header.Get(BranchHeader)),
	}
	if scope.OrganizationID == "" {
		return scope, apperr.NotAcceptable("Organization ID header missing")
	}
	if requireBranch && scope.BranchID == "" {
		return scope, apperr.NotAcceptable("Branch ID header missing")
	}
	return scope, nil
}

// RequireScope rejects requests missing the scope headers with 406
func RequireScope(requireBranch bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, err := ScopeFromHeaders(r, requireBranch)
			if err != nil {
				httputil.WriteError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), contextkeys.ScopeKey, scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ScopeFromContext returns the scope stored by RequireScope
func ScopeFromContext(ctx context.Context) (auth.Scope, bool) {
	scope, ok := ctx.Value(contextkeys.ScopeKey).(auth.Scope)
	return scope, ok
}
