package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/eringen/blogapi/internal/apperr"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repositories need.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type conn struct {
	q DBTX
	d dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := c.q.ExecContext(ctx, c.d.rebind(query), args...)
	return res, classify(err)
}

// insert runs an INSERT ... RETURNING <id> and returns the new key.
func (c conn) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	err := c.q.QueryRowContext(ctx, c.d.rebind(query), args...).Scan(&id)
	return id, classify(err)
}

// execAffected runs a statement that must touch at least one row; zero rows
// is reported as NotFound with msg.
func (c conn) execAffected(ctx context.Context, msg string, query string, args ...any) error {
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.E(apperr.NotFound, "%s", msg)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// queryOne expects exactly one row. No row is NotFound with notFound as the
// message; more than one is Conflict.
func queryOne[T any](ctx context.Context, c conn, notFound string, scan func(scanner) (T, error), query string, args ...any) (T, error) {
	var zero T
	rows, err := c.q.QueryContext(ctx, c.d.rebind(query), args...)
	if err != nil {
		return zero, classify(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, classify(err)
		}
		return zero, apperr.E(apperr.NotFound, "%s", notFound)
	}
	v, err := scan(rows)
	if err != nil {
		return zero, err
	}
	if rows.Next() {
		return zero, apperr.E(apperr.Conflict, "Multiple records match: %s", notFound)
	}
	return v, classify(rows.Err())
}

// queryAll collects every row. The result is never nil so it encodes as [].
func queryAll[T any](ctx context.Context, c conn, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := c.q.QueryContext(ctx, c.d.rebind(query), args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, classify(rows.Err())
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// assignments accumulates the SET list of a partial update.
type assignments struct {
	cols []string
	args []any
}

func (a *assignments) set(col string, v any) {
	a.cols = append(a.cols, col+" = ?")
	a.args = append(a.args, v)
}

func (a *assignments) empty() bool { return len(a.cols) == 0 }

func (a *assignments) clause() string { return strings.Join(a.cols, ", ") }

func setIf[T any](a *assignments, col string, v *T) {
	if v != nil {
		a.set(col, *v)
	}
}

// where accumulates AND-ed filter predicates.
type where struct {
	preds []string
	args  []any
}

func (w *where) add(pred string, args ...any) {
	w.preds = append(w.preds, pred)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.preds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.preds, " AND ")
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// timeCol scans a timestamp column regardless of whether the driver hands
// back time.Time or text. Nullable columns go through scanNullTime.
type timeCol struct {
	dst  *time.Time
	null **time.Time
}

func scanTime(dst *time.Time) *timeCol { return &timeCol{dst: dst} }
func scanNullTime(dst **time.Time) *timeCol { return &timeCol{null: dst} }

func (t *timeCol) Scan(src any) error {
	var v time.Time
	switch s := src.(type) {
	case nil:
		if t.null != nil {
			*t.null = nil
		}
		return nil
	case time.Time:
		v = s
	case string:
		p, err := parseTime(s)
		if err != nil {
			return err
		}
		v = p
	case []byte:
		p, err := parseTime(string(s))
		if err != nil {
			return err
		}
		v = p
	default:
		return fmt.Errorf("store: cannot scan %T into time", src)
	}
	v = v.UTC()
	if t.null != nil {
		*t.null = &v
		return nil
	}
	*t.dst = v
	return nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("store: unrecognized time %q", s)
}

// utc normalizes times before they are written.
func utc(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
