package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Togather-Foundation/conflicts/internal/storage"
)

// HealthCheck is the body of the readiness check.
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Backend   string                 `json:"backend,omitempty"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HealthChecker answers liveness and readiness checks.
type HealthChecker struct {
	db        storage.Adapter
	version   string
	gitCommit string
	timeout   time.Duration
}

func NewHealthChecker(db storage.Adapter, version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		db:        db,
		version:   version,
		gitCommit: gitCommit,
		timeout:   2 * time.Second,
	}
}

// Healthz reports that the process is serving. It touches no dependencies.
func (h *HealthChecker) Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondHealth(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Readyz reports whether the database is reachable and fully migrated.
func (h *HealthChecker) Readyz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			respondHealth(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
			return
		default:
		}

		checks := map[string]CheckResult{
			"database": h.checkDatabase(r.Context()),
		}
		if checks["database"].Status == "pass" {
			checks["migrations"] = h.checkMigrations(r.Context())
		}

		status := "healthy"
		code := http.StatusOK
		for _, check := range checks {
			if check.Status == "fail" {
				status = "unhealthy"
				code = http.StatusServiceUnavailable
				break
			}
		}

		resp := HealthCheck{
			Status:    status,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if h.db != nil {
			resp.Backend = string(h.db.Backend())
		}
		respondHealth(w, code, resp)
	}
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: "fail", Message: "Database not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "Database ping failed"
		if ctx.Err() == context.DeadlineExceeded {
			message = "Database ping timed out"
		}
		return CheckResult{
			Status:    "fail",
			Message:   message,
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error(), "kind": storage.KindOf(err).String()},
		}
	}

	stats := h.db.Stats()
	return CheckResult{
		Status:    "pass",
		Message:   "Database connection successful",
		LatencyMs: latency,
		Details: map[string]any{
			"max_connections":     stats.MaxOpen,
			"open_connections":    stats.Open,
			"in_use_connections":  stats.InUse,
			"idle_connections":    stats.Idle,
			"waiting_connections": stats.Waiting,
		},
	}
}

func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	res, err := h.db.Execute(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{
			Status:    "fail",
			Message:   "Failed to query migration version",
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error()},
		}
	}
	row, ok := res.First()
	if !ok {
		return CheckResult{Status: "fail", Message: "No migrations applied", LatencyMs: latency}
	}
	version, _, _ := row.NullInt64("version")
	if isDirty(row["dirty"]) {
		return CheckResult{
			Status:    "fail",
			Message:   "Database in dirty migration state",
			LatencyMs: latency,
			Details:   map[string]any{"version": version, "dirty": true},
		}
	}
	return CheckResult{
		Status:    "pass",
		LatencyMs: latency,
		Details:   map[string]any{"version": version},
	}
}

// isDirty reads the migrate dirty flag, a boolean on PostgreSQL and an
// integer on SQLite.
func isDirty(v any) bool {
	switch d := v.(type) {
	case bool:
		return d
	case int64:
		return d != 0
	case string:
		return d == "1" || d == "true" || d == "t"
	default:
		return false
	}
}

func respondHealth(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
