// Package schema creates the relational schema and the baseline rows a fresh
// deployment needs before it can serve requests.
package schema

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/conflicts/internal/config"
	"github.com/Togather-Foundation/conflicts/internal/storage"
	"github.com/rs/zerolog"
)

// Hasher turns a seed password into a stored credential.
type Hasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
}

type Initializer struct {
	adapter storage.Adapter
	hasher  Hasher
	seed    config.SeedConfig
	logger  zerolog.Logger
}

func NewInitializer(adapter storage.Adapter, hasher Hasher, seed config.SeedConfig, logger zerolog.Logger) *Initializer {
	return &Initializer{
		adapter: adapter,
		hasher:  hasher,
		seed:    seed,
		logger:  logger.With().Str("component", "schema").Logger(),
	}
}

// Run migrates the schema to the latest version and, when enabled, seeds the
// baseline accounts and sample events. Any error must abort startup.
func (i *Initializer) Run(ctx context.Context) error {
	if err := MigrateUp(i.adapter, i.logger); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	if !i.seed.Enabled {
		i.logger.Info().Msg("seeding disabled")
		return nil
	}
	if err := i.Seed(ctx); err != nil {
		return fmt.Errorf("seed database: %w", err)
	}
	return nil
}

// Seed inserts the admin and default accounts if absent, never touching
// existing rows, then the sample events if enabled.
func (i *Initializer) Seed(ctx context.Context) error {
	accounts := []struct {
		username string
		password string
		role     string
	}{
		{i.seed.AdminUsername, i.seed.AdminPassword, "admin"},
		{i.seed.UserUsername, i.seed.UserPassword, "user"},
	}

	for _, acct := range accounts {
		if acct.username == "" || acct.password == "" {
			continue
		}
		created, err := i.ensureUser(ctx, acct.username, acct.password, acct.role)
		if err != nil {
			return err
		}
		if created {
			i.logger.Info().Str("username", acct.username).Str("role", acct.role).Msg("seeded account")
		}
	}

	if !i.seed.SampleEvents {
		return nil
	}
	inserted, err := i.seedEvents(ctx)
	if err != nil {
		return err
	}
	i.logger.Info().Int("inserted", inserted).Int("total", len(sampleEvents)).Msg("sample events seeded")
	return nil
}

func (i *Initializer) ensureUser(ctx context.Context, username, password, role string) (bool, error) {
	// Skip the expensive hash when the account is already there.
	res, err := i.adapter.Execute(ctx, `SELECT id FROM users WHERE username = $1`, username)
	if err != nil {
		return false, fmt.Errorf("look up %s: %w", username, err)
	}
	if len(res.Rows) > 0 {
		return false, nil
	}

	hash, err := i.hasher.Hash(ctx, password)
	if err != nil {
		return false, fmt.Errorf("hash password for %s: %w", username, err)
	}

	query := insertUserIfAbsent(i.adapter.Backend())
	res, err = i.adapter.Execute(ctx, query, username, hash, role)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", username, err)
	}
	return res.Affected > 0, nil
}

func insertUserIfAbsent(backend storage.Backend) string {
	if backend == storage.BackendSQLite {
		return `INSERT OR IGNORE INTO users (username, password_hash, role) VALUES ($1, $2, $3)`
	}
	return `INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3)
ON CONFLICT (username) DO NOTHING`
}
