package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/tenancy/pkg/auth"
)

func TestRequireScope(t *testing.T) {
	var got auth.Scope
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ScopeFromContext(r.Context())
	})

	tests := []struct {
		name          string
		requireBranch bool
		org, branch   string
		status        int
		message       string
	}{
		{"both headers", true, "org-1", "br-1", http.StatusOK, ""},
		{"org only when branch optional", false, "org-1", "", http.StatusOK, ""},
		{"missing org", true, "", "br-1", http.StatusNotAcceptable, "Organization ID header missing"},
		{"missing branch", true, "org-1", "", http.StatusNotAcceptable, "Branch ID header missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = auth.Scope{}
			req := httptest.NewRequest(http.MethodGet, "/telegram-groups", nil)
			if tt.org != "" {
				req.Header.Set(OrganizationHeader, tt.org)
			}
			if tt.branch != "" {
				req.Header.Set(BranchHeader, tt.branch)
			}
			rec := httptest.NewRecorder()

			RequireScope(tt.requireBranch)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.message != "" {
				assert.Contains(t, rec.Body.String(), tt.message)
				return
			}
			assert.Equal(t, auth.Scope{OrganizationID: tt.org, BranchID: tt.branch}, got)
		})
	}
}
