package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

// ParseJSON decodes the request body. Enum and field errors raised while
// decoding keep their classification; anything else is a validation error.
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperr.Validation(fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

// PathVar returns a path parameter
func PathVar(r *http.Request, key string) string {
	return mux.Vars(r)[key]
}

// ParseQueryInt extracts an integer query parameter
func ParseQueryInt(r *http.Request, key string, defaultVal int) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, apperr.Validation(fmt.Sprintf("invalid integer for query param %s: %s", key, str))
	}
	return val, nil
}

// ParseQueryTime extracts an RFC3339 timestamp; absent means nil
func ParseQueryTime(r *http.Request, key string) (*time.Time, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("invalid timestamp for query param %s: %s", key, str))
	}
	t = t.UTC()
	return &t, nil
}

// ParsePageParams reads limit, page (or its alias offset) and start
func ParsePageParams(r *http.Request) (storage.PageParams, error) {
	var p storage.PageParams
	var err error

	if p.Limit, err = ParseQueryInt(r, "limit", storage.DefaultLimit); err != nil {
		return p, err
	}
	pageKey := "page"
	if r.URL.Query().Get(pageKey) == "" {
		pageKey = "offset"
	}
	if p.Page, err = ParseQueryInt(r, pageKey, storage.DefaultPage); err != nil {
		return p, err
	}
	if p.Start, err = ParseQueryInt(r, "start", storage.DefaultStart); err != nil {
		return p, err
	}
	if p.Limit < 1 || p.Limit > storage.MaxLimit {
		return p, apperr.Validation(fmt.Sprintf("limit must be between 1 and %d", storage.MaxLimit))
	}
	if p.Page < 1 || p.Page > storage.MaxPage {
		return p, apperr.Validation(fmt.Sprintf("page must be between 1 and %d", storage.MaxPage))
	}
	if p.Start < 0 || p.Start > storage.MaxStart {
		return p, apperr.Validation(fmt.Sprintf("start must be between 0 and %d", storage.MaxStart))
	}
	return p, nil
}

// ParseFilter reads the created_at/updated_at range filters
func ParseFilter(r *http.Request) (storage.Filter, error) {
	var f storage.Filter
	var err error

	if f.CreatedAt.From, err = ParseQueryTime(r, "created_at_from"); err != nil {
		return f, err
	}
	if f.CreatedAt.To, err = ParseQueryTime(r, "created_at_to"); err != nil {
		return f, err
	}
	if f.UpdatedAt.From, err = ParseQueryTime(r, "updated_at_from"); err != nil {
		return f, err
	}
	if f.UpdatedAt.To, err = ParseQueryTime(r, "updated_at_to"); err != nil {
		return f, err
	}
	return f, nil
}
