package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// where accumulates AND-ed conditions with positional placeholders
type where struct {
	conds []string
	args  []interface{}
}

// eq adds "column = $n" when value is non-empty
func (w *where) eq(column string, value interface{}) {
	if s, ok := value.(string); ok && s == "" {
		return
	}
	w.args = append(w.args, value)
	w.conds = append(w.conds, fmt.Sprintf("%s = $%d", column, len(w.args)))
}

func (w *where) timeRange(column string, r storage.TimeRange) {
	if r.From != nil {
		w.args = append(w.args, r.From.UTC())
		w.conds = append(w.conds, fmt.Sprintf("%s >= $%d", column, len(w.args)))
	}
	if r.To != nil {
		w.args = append(w.args, r.To.UTC())
		w.conds = append(w.conds, fmt.Sprintf("%s <= $%d", column, len(w.args)))
	}
}

func (w *where) filter(f storage.Filter) {
	w.timeRange("created_at", f.CreatedAt)
	w.timeRange("updated_at", f.UpdatedAt)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends ORDER BY/LIMIT/OFFSET and returns the final query and args
func (w *where) page(base string, params storage.PageParams) (string, []interface{}) {
	p := params.Normalize()
	args := append([]interface{}{}, w.args...)
	args = append(args, p.Limit, p.Offset())
	query := fmt.Sprintf("%s%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d",
		base, w.String(), len(args)-1, len(args))
	return query, args
}

func count(ctx context.Context, q querier, table string, w *where) (int64, error) {
	var total int64
	query := "SELECT COUNT(*) FROM " + table + w.String()
	if err := q.QueryRowContext(ctx, query, w.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return total, nil
}

// setter builds the SET list of a partial update
type setter struct {
	clauses []string
	args    []interface{}
}

func (s *setter) set(column string, value interface{}) {
	s.args = append(s.args, value)
	s.clauses = append(s.clauses, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

func (s *setter) empty() bool {
	return len(s.clauses) == 0
}

// update runs "UPDATE table SET ... WHERE id = $n" and reports NotFound when
// no row matched.
func (s *setter) update(ctx context.Context, q querier, table, id, entity string) error {
	args := append(s.args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(s.clauses, ", "), len(args))

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return serverError(fmt.Sprintf("failed to update %s", entity), err)
	}
	return requireAffected(result, entity)
}

func deleteByID(ctx context.Context, q querier, table, id, entity string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return serverError(fmt.Sprintf("failed to delete %s", entity), err)
	}
	return requireAffected(result, entity)
}

// deleteByScope removes rows by one of the allowed scope columns
func deleteByScope(ctx context.Context, q querier, table string, allowed []storage.ScopeField, field storage.ScopeField, id string) (int64, error) {
	ok := false
	for _, f := range allowed {
		if f == field {
			ok = true
			break
		}
	}
	if !ok {
		return 0, fmt.Errorf("table %s cannot be deleted by %s", table, field)
	}

	result, err := q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, field), id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s by %s: %w", table, field, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func requireAffected(result sql.Result, entity string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return serverError("failed to get rows affected", err)
	}
	if n == 0 {
		return notFound(entity)
	}
	return nil
}

func notFound(entity string) *apperr.Error {
	return apperr.NotFound(fmt.Sprintf("%s not found", entity))
}

func serverError(op string, err error) *apperr.Error {
	return apperr.ServerError("Internal server error", fmt.Errorf("%s: %w", op, err))
}

// createError keeps duplicate-key failures distinguishable in the cause
func createError(entity string, err error) *apperr.Error {
	return apperr.CannotCreate(fmt.Sprintf("Cannot create %s", entity), err)
}

// getError maps sql.ErrNoRows to NotFound
func getError(entity string, err error) error {
	if err == sql.ErrNoRows {
		return notFound(entity)
	}
	return serverError(fmt.Sprintf("failed to get %s", entity), err)
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
