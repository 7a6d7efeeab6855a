package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tenancy/pkg/apperr"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", apperr.NotFound("Organization not found"), http.StatusNotFound, "Organization not found"},
		{"forbidden", apperr.Forbidden(""), http.StatusForbidden, apperr.ForbiddenMessage},
		{"cannot create", apperr.CannotCreate("Cannot create branch", errors.New("dup")), http.StatusConflict, "Cannot create branch"},
		{"validation", apperr.Validation("bad role"), http.StatusUnprocessableEntity, "bad role"},
		{"not acceptable", apperr.NotAcceptable("Organization ID header missing"), http.StatusNotAcceptable, "Organization ID header missing"},
		{"foreign error hides cause", errors.New("connection refused"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)

			WriteError(rec, req, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decodeBody(t, rec)
			assert.Equal(t, tt.message, body["message"])
			assert.Equal(t, float64(tt.status), body["status_code"])
		})
	}
}

func TestWriteDeleted(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteDeleted(rec))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Deleted successfully", decodeBody(t, rec)["message"])
}

func TestWriteCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteCreated(rec, map[string]string{"id": "abc"}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "abc", decodeBody(t, rec)["id"])
}
