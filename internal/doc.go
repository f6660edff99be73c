// Package internal documents the conflict events server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses and routing
// - domain: event and account logic
// - storage: the query adapter over PostgreSQL or SQLite, plus schema setup
// - auth, audit, config, ids, metrics, sanitize, telemetry, validation: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
