// Package postgres implements storage.Adapter on top of a bounded pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Togather-Foundation/conflicts/internal/metrics"
	"github.com/Togather-Foundation/conflicts/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultMaxConnections = 10
	DefaultAcquireTimeout = 5 * time.Second
)

// Config controls pool sizing. Zero values fall back to the defaults.
type Config struct {
	URL             string
	MaxConnections  int32
	MinConnections  int32
	AcquireTimeout  time.Duration
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Adapter executes statements on a pooled connection that is acquired for the
// duration of a single statement and released afterwards.
type Adapter struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
	waiting        atomic.Int64
}

var _ storage.Adapter = (*Adapter)(nil)

// Open creates the pool and verifies one connection can be established.
func Open(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("postgres adapter: database url is empty")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = DefaultMaxConnections
	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolConfig.MinConns = min(cfg.MinConnections, poolConfig.MaxConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, classifyError("connect", err)
	}

	adapter := New(pool, cfg.AcquireTimeout)
	if err := adapter.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return adapter, nil
}

// New wraps an existing pool. A non-positive acquireTimeout uses
// DefaultAcquireTimeout.
func New(pool *pgxpool.Pool, acquireTimeout time.Duration) *Adapter {
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	return &Adapter{pool: pool, acquireTimeout: acquireTimeout}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendPostgres
}

// Pool exposes the underlying pool for migration tooling and tests.
func (a *Adapter) Pool() *pgxpool.Pool {
	return a.pool
}

// Execute runs one statement. Reads and writes carrying a RETURNING clause go
// through Query so the produced rows are collected; other writes use Exec.
func (a *Adapter) Execute(ctx context.Context, query string, args ...any) (storage.Result, error) {
	op := storage.Operation(query)
	start := time.Now()

	result, err := a.execute(ctx, op, query, args)
	metrics.RecordQuery(op, start, err)
	return result, err
}

func (a *Adapter) execute(ctx context.Context, op, query string, args []any) (storage.Result, error) {
	conn, err := a.acquire(ctx)
	if err != nil {
		return storage.Result{}, err
	}
	defer conn.Release()

	read := storage.IsRead(query)
	if read || storage.HasReturning(query) {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return storage.Result{}, classifyError(op, err)
		}
		maps, err := pgx.CollectRows(rows, pgx.RowToMap)
		if err != nil {
			return storage.Result{}, classifyError(op, err)
		}

		result := storage.Result{Rows: make([]storage.Row, 0, len(maps))}
		for _, m := range maps {
			result.Rows = append(result.Rows, storage.Row(m))
		}
		if read {
			return result, nil
		}

		result.Affected = rows.CommandTag().RowsAffected()
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

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return storage.Result{}, classifyError(op, err)
	}
	return storage.Result{Affected: tag.RowsAffected()}, nil
}

// acquire waits at most acquireTimeout for a free connection. Running out of
// that budget while the caller's context is still live means the pool is
// saturated, which is reported as a retriable ErrPoolExhausted.
func (a *Adapter) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, a.acquireTimeout)
	defer cancel()

	a.waiting.Add(1)
	conn, err := a.pool.Acquire(acquireCtx)
	a.waiting.Add(-1)
	if err == nil {
		return conn, nil
	}

	if ctx.Err() == nil && errors.Is(acquireCtx.Err(), context.DeadlineExceeded) {
		return nil, &storage.Error{
			Kind:      storage.KindConnection,
			Op:        "acquire",
			Retriable: true,
			Err:       fmt.Errorf("%w: no connection free within %s", storage.ErrPoolExhausted, a.acquireTimeout),
		}
	}
	return nil, classifyError("acquire", err)
}

func (a *Adapter) Ping(ctx context.Context) error {
	conn, err := a.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if err := conn.Ping(ctx); err != nil {
		return classifyError("ping", err)
	}
	return nil
}

func (a *Adapter) Stats() storage.PoolStats {
	stat := a.pool.Stat()
	return storage.PoolStats{
		MaxOpen: int64(stat.MaxConns()),
		Open:    int64(stat.TotalConns()),
		InUse:   int64(stat.AcquiredConns()),
		Idle:    int64(stat.IdleConns()),
		Waiting: a.waiting.Load(),
	}
}

func (a *Adapter) Close() error {
	a.pool.Close()
	return nil
}
