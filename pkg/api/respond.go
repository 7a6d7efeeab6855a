package api

import (
	"net/http"
	"strings"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/auth"
	"github.com/platinummonkey/tenancy/pkg/httputil"
	"github.com/platinummonkey/tenancy/pkg/middleware"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

// guard builds the per-route middleware: which token audience a route
// accepts, whether it needs scope headers and whether it is rate limited.
type guard struct {
	users    *middleware.Authenticator
	admins   *middleware.Authenticator
	limiter  middleware.Limiter
	recorder middleware.RateLimitRecorder
}

func (g guard) user(h http.HandlerFunc) http.Handler {
	return g.users.Handler(h)
}

func (g guard) admin(h http.HandlerFunc) http.Handler {
	return g.admins.Handler(h)
}

// scoped authenticates first so a missing token wins over missing headers
func (g guard) scoped(requireBranch bool, h http.HandlerFunc) http.Handler {
	return g.users.Handler(middleware.RequireScope(requireBranch)(h))
}

func (g guard) limited(name string, h http.Handler) http.Handler {
	if g.limiter == nil {
		return h
	}
	return middleware.RateLimit(name, g.limiter, g.recorder)(h)
}

func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}, err error) {
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, status, data)
}

func respondDeleted(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteDeleted(w)
}

// subject returns the authenticated id or writes 401
func subject(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := middleware.SubjectID(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return "", false
	}
	return id, true
}

// scopeOf returns the scope stored by RequireScope
func scopeOf(r *http.Request) auth.Scope {
	scope, _ := middleware.ScopeFromContext(r.Context())
	return scope
}

func decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := httputil.ParseJSON(r, dest); err != nil {
		httputil.WriteError(w, r, err)
		return false
	}
	return true
}

// listParams reads the paging and timestamp filters shared by list routes
func listParams(r *http.Request) (storage.PageParams, storage.Filter, error) {
	page, err := httputil.ParsePageParams(r)
	if err != nil {
		return page, storage.Filter{}, err
	}
	filter, err := httputil.ParseFilter(r)
	return page, filter, err
}

func query(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, r, apperr.NotFound("Not found"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusMethodNotAllowed, apperr.Response{
		Message:    "Method not allowed",
		StatusCode: http.StatusMethodNotAllowed,
	})
}
