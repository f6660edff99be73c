// Package sqlite implements storage.Adapter on an embedded SQLite file served
// through a single connection.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Togather-Foundation/conflicts/internal/metrics"
	"github.com/Togather-Foundation/conflicts/internal/storage"
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

const DefaultBusyTimeout = 5 * time.Second

// Config selects the database file. Path ":memory:" opens a private
// in-memory database that lives as long as the adapter.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// Adapter serializes every statement over one connection. Callers contend on
// database/sql's connection wait queue, which honours their contexts.
type Adapter struct {
	db      *sql.DB
	pending atomic.Int64
}

var _ storage.Adapter = (*Adapter)(nil)

// Open opens (creating if needed) the database file with foreign keys
// enforced and a busy timeout applied to the connection.
func Open(ctx context.Context, cfg Config) (*Adapter, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, classifyError("open", err)
	}

	adapter := New(db)
	if err := adapter.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Pragmas in the DSN apply on connect; this checks they took effect.
	res, err := adapter.Execute(ctx, "PRAGMA foreign_keys")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if row, ok := res.First(); ok {
		if on, _, _ := row.NullInt64("foreign_keys"); on != 1 {
			_ = db.Close()
			return nil, errors.New("sqlite adapter: foreign key enforcement could not be enabled")
		}
	}
	return adapter, nil
}

// DSN builds the modernc.org/sqlite connection string for cfg.
func DSN(cfg Config) (string, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return "", errors.New("sqlite adapter: database path is empty")
	}
	path = strings.TrimPrefix(path, "file:")

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = DefaultBusyTimeout
	}

	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	return "file:" + path + "?" + q.Encode(), nil
}

// New wraps db and pins it to a single long-lived connection.
func New(db *sql.DB) *Adapter {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	return &Adapter{db: db}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

// DB exposes the handle for migration tooling.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

// Execute rewrites $N placeholders to ?N and runs the statement. Inserts
// report the generated rowid as InsertID.
func (a *Adapter) Execute(ctx context.Context, query string, args ...any) (storage.Result, error) {
	op := storage.Operation(query)
	start := time.Now()

	a.pending.Add(1)
	defer a.pending.Add(-1)

	result, err := a.execute(ctx, op, storage.Rebind(query, storage.BackendSQLite), args)
	metrics.RecordQuery(op, start, err)
	return result, err
}

func (a *Adapter) execute(ctx context.Context, op, query string, args []any) (storage.Result, error) {
	read := storage.IsRead(query)
	if read || storage.HasReturning(query) {
		rows, err := a.db.QueryContext(ctx, query, args...)
		if err != nil {
			return storage.Result{}, classifyError(op, err)
		}
		collected, err := collectRows(rows)
		if err != nil {
			return storage.Result{}, classifyError(op, err)
		}

		result := storage.Result{Rows: collected}
		if read {
			return result, nil
		}
		result.Affected = int64(len(collected))
		if storage.IsInsert(query) {
			if first, ok := result.First(); ok {
				if id, ok, err := first.NullInt64("id"); err == nil && ok {
					result.InsertID = id
					result.HasInsertID = true
				}
			}
		}
		return result, nil
	}

	res, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storage.Result{}, classifyError(op, err)
	}

	var result storage.Result
	if result.Affected, err = res.RowsAffected(); err != nil {
		return storage.Result{}, classifyError(op, err)
	}
	if storage.IsInsert(query) && result.Affected > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return storage.Result{}, classifyError(op, err)
		}
		result.InsertID = id
		result.HasInsertID = true
	}
	return result, nil
}

func collectRows(rows *sql.Rows) ([]storage.Row, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []storage.Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(storage.Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (a *Adapter) Ping(ctx context.Context) error {
	return classifyError("ping", a.db.PingContext(ctx))
}

func (a *Adapter) Stats() storage.PoolStats {
	stats := a.db.Stats()
	waiting := a.pending.Load() - int64(stats.InUse)
	if waiting < 0 {
		waiting = 0
	}
	return storage.PoolStats{
		MaxOpen: int64(stats.MaxOpenConnections),
		Open:    int64(stats.OpenConnections),
		InUse:   int64(stats.InUse),
		Idle:    int64(stats.Idle),
		Waiting: waiting,
	}
}

func (a *Adapter) Close() error {
	return a.db.Close()
}
