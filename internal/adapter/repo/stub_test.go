package repo

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"wordcraft/internal/infra"
)

type call struct {
	query string
	args  []any
}

// stubSQL records statements and answers them from per-query callbacks.
type stubSQL struct {
	calls    []call
	rows     map[string]func(args []any) pgx.Row
	queries  map[string]func(args []any) (pgx.Rows, error)
	execs    map[string]func(args []any) (pgconn.CommandTag, error)
	txCount  int
	rollback bool
}

func newStubSQL() *stubSQL {
	return &stubSQL{
		rows:    map[string]func([]any) pgx.Row{},
		queries: map[string]func([]any) (pgx.Rows, error){},
		execs:   map[string]func([]any) (pgconn.CommandTag, error){},
	}
}

func (s *stubSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, call{query, args})
	if fn, ok := s.execs[query]; ok {
		return fn(args)
	}
	return pgconn.NewCommandTag("OK 1"), nil
}

func (s *stubSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	s.calls = append(s.calls, call{query, args})
	if fn, ok := s.rows[query]; ok {
		return fn(args)
	}
	return simpleRow{}
}

func (s *stubSQL) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	s.calls = append(s.calls, call{query, args})
	if fn, ok := s.queries[query]; ok {
		return fn(args)
	}
	return nil, fmt.Errorf("unexpected query: %s", query)
}

func (s *stubSQL) InTx(_ context.Context, fn func(infra.SQLExecutor) error) error {
	s.txCount++
	err := fn(s)
	s.rollback = err != nil
	return err
}

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// assign copies values into scan destinations by reflection.
func assign(dest []any, values ...any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: got %d destinations, want %d", len(dest), len(values))
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

type testRowsBase struct{}

func (testRowsBase) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (testRowsBase) Conn() *pgx.Conn { return nil }

func (testRowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (testRowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (testRowsBase) RawValues() [][]byte { return nil }

type fakeRows struct {
	testRowsBase
	values [][]any
	idx    int
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.values) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.values) {
		return pgx.ErrNoRows
	}
	return assign(dest, r.values[r.idx-1]...)
}

func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Close() { r.closed = true }
