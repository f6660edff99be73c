// Package storage defines the backend-neutral query contract shared by the
// PostgreSQL and SQLite adapters.
//
// Query templates are always written with PostgreSQL style positional
// placeholders ($1, $2, ...). Adapters translate them when their engine uses a
// different token, execute the statement and hand back a uniform Result.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// Backend identifies the relational engine serving a process.
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// ParseBackend normalizes a configured backend name.
func ParseBackend(value string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "postgres", "postgresql", "pg":
		return BackendPostgres, nil
	case "sqlite", "sqlite3":
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database backend %q", value)
	}
}

// Row maps column names to the driver supplied values of one result row.
type Row map[string]any

// Result is the uniform outcome of Adapter.Execute.
//
// Reads fill Rows. Writes fill Affected; inserts also fill InsertID when the
// backend could report it (SQLite via last-insert-id, PostgreSQL via a
// RETURNING id clause supplied by the caller, in which case Rows holds the
// returned rows too).
type Result struct {
	Rows        []Row
	Affected    int64
	InsertID    int64
	HasInsertID bool
}

// First returns the first row, or false when the result is empty.
func (r Result) First() (Row, bool) {
	if len(r.Rows) == 0 {
		return nil, false
	}
	return r.Rows[0], true
}

// PoolStats is a point-in-time view of the connections behind an adapter.
type PoolStats struct {
	MaxOpen int64
	Open    int64
	InUse   int64
	Idle    int64
	Waiting int64
}

// Adapter executes parameterized SQL against exactly one backend.
type Adapter interface {
	Backend() Backend
	Execute(ctx context.Context, query string, args ...any) (Result, error)
	Ping(ctx context.Context) error
	Stats() PoolStats
	Close() error
}
