package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCheck(context.Context) error   { return nil }
func failCheck(context.Context) error { return errors.New("down") }

func TestHealthChecker_Check(t *testing.T) {
	tests := []struct {
		name     string
		required CheckFunc
		optional CheckFunc
		want     string
	}{
		{"all healthy", okCheck, okCheck, StatusHealthy},
		{"optional down", okCheck, failCheck, StatusDegraded},
		{"required down", failCheck, okCheck, StatusUnhealthy},
		{"both down", failCheck, failCheck, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker("test")
			h.Require("database", tt.required)
			h.Optional("redis", tt.optional)

			status := h.Check(context.Background())
			assert.Equal(t, tt.want, status.Status)
			assert.Len(t, status.Dependencies, 2)
		})
	}
}

func TestHealthChecker_Readiness(t *testing.T) {
	h := NewHealthChecker("test")
	h.Require("database", failCheck)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest("GET", "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "down", status.Dependencies["database"].Message)

	rec = httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest("GET", "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
