package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Togather-Foundation/conflicts/internal/storage"
	"github.com/Togather-Foundation/conflicts/internal/storage/schema"
	"github.com/Togather-Foundation/conflicts/internal/storage/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sqlite.Adapter {
	t.Helper()
	adapter, err := sqlite.Open(context.Background(), sqlite.Config{Path: filepath.Join(t.TempDir(), "health.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter
}

// downAdapter is a storage.Adapter whose database is unreachable.
type downAdapter struct{}

func (downAdapter) Backend() storage.Backend { return storage.BackendPostgres }
func (downAdapter) Execute(context.Context, string, ...any) (storage.Result, error) {
	return storage.Result{}, storage.ErrConnection
}
func (downAdapter) Ping(context.Context) error {
	return storage.Classify("ping", storage.KindConnection, true, errors.New("connection refused"))
}
func (downAdapter) Stats() storage.PoolStats { return storage.PoolStats{} }
func (downAdapter) Close() error             { return nil }

func readyz(t *testing.T, checker *HealthChecker) (int, HealthCheck) {
	t.Helper()
	w := httptest.NewRecorder()
	checker.Readyz().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body HealthCheck
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestHealthzAlwaysOK(t *testing.T) {
	checker := NewHealthChecker(downAdapter{}, "0.1.0", "abc")
	w := httptest.NewRecorder()
	checker.Healthz().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestReadyzMigratedDatabase(t *testing.T) {
	adapter := openSQLite(t)
	require.NoError(t, schema.MigrateUp(adapter, zerolog.Nop()))

	code, body := readyz(t, NewHealthChecker(adapter, "0.1.0", "test-commit"))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "0.1.0", body.Version)
	assert.Equal(t, "test-commit", body.GitCommit)
	assert.Equal(t, "sqlite", body.Backend)
	assert.Equal(t, "pass", body.Checks["database"].Status)
	assert.Equal(t, "pass", body.Checks["migrations"].Status)
	assert.EqualValues(t, 1, body.Checks["database"].Details["max_connections"])
}

func TestReadyzUnmigratedDatabase(t *testing.T) {
	code, body := readyz(t, NewHealthChecker(openSQLite(t), "0.1.0", "test-commit"))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "pass", body.Checks["database"].Status)
	assert.Equal(t, "fail", body.Checks["migrations"].Status)
}

func TestReadyzDatabaseDown(t *testing.T) {
	code, body := readyz(t, NewHealthChecker(downAdapter{}, "0.1.0", "test-commit"))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "fail", body.Checks["database"].Status)
	assert.Equal(t, "connection", body.Checks["database"].Details["kind"])
	assert.NotContains(t, body.Checks, "migrations")
}

func TestReadyzNilDatabase(t *testing.T) {
	code, body := readyz(t, NewHealthChecker(nil, "0.1.0", "test-commit"))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "fail", body.Checks["database"].Status)
}

func TestReadyzShuttingDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	NewHealthChecker(downAdapter{}, "", "").Readyz().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "shutting_down")
}

func TestIsDirty(t *testing.T) {
	assert.True(t, isDirty(true))
	assert.True(t, isDirty(int64(1)))
	assert.True(t, isDirty("t"))
	assert.False(t, isDirty(false))
	assert.False(t, isDirty(int64(0)))
	assert.False(t, isDirty(nil))
}
