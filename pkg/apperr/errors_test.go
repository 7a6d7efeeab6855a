package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"not found", NotFound("x"), http.StatusNotFound},
		{"cannot create", CannotCreate("x", nil), http.StatusConflict},
		{"server", ServerError("x", nil), http.StatusInternalServerError},
		{"bad request", BadRequest("x"), http.StatusBadRequest},
		{"forbidden", Forbidden(""), http.StatusForbidden},
		{"validation", Validation("x"), http.StatusUnprocessableEntity},
		{"unauthorized", Unauthorized("x"), http.StatusUnauthorized},
		{"not acceptable", NotAcceptable("x"), http.StatusNotAcceptable},
		{"too many requests", TooManyRequests("x"), http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestForbiddenDefaultMessage(t *testing.T) {
	assert.Equal(t, "Forbidden!", Forbidden("").Message)
	assert.Equal(t, "Super Admin already exists", Forbidden("Super Admin already exists").Message)
}

func TestFrom(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, From(nil))
	})

	t.Run("passes application errors through", func(t *testing.T) {
		orig := NotFound("Relation not found")
		wrapped := fmt.Errorf("lookup: %w", orig)
		assert.Same(t, orig, From(wrapped))
	})

	t.Run("no rows", func(t *testing.T) {
		err := From(fmt.Errorf("failed to get: %w", sql.ErrNoRows))
		assert.Equal(t, KindNotFound, err.Kind)
	})

	t.Run("unique violation", func(t *testing.T) {
		err := From(&pq.Error{Code: "23505"})
		assert.Equal(t, KindCannotCreate, err.Kind)
	})

	t.Run("unknown", func(t *testing.T) {
		err := From(errors.New("boom"))
		assert.Equal(t, KindServerError, err.Kind)
		assert.Equal(t, "Internal server error", err.Message)
	})
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Forbidden(""))
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestToResponse(t *testing.T) {
	resp := ToResponse(ServerError("Internal server error", errors.New("connection reset")))
	assert.Equal(t, Response{Message: "Internal server error", StatusCode: 500}, resp)
}
