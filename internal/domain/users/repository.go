package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Togather-Foundation/conflicts/internal/auth"
	"github.com/Togather-Foundation/conflicts/internal/storage"
)

// Repository persists accounts.
type Repository interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, username, passwordHash string, role auth.Role) (User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// SQLRepository implements Repository on a storage.Adapter.
type SQLRepository struct {
	db storage.Adapter
}

func NewRepository(db storage.Adapter) *SQLRepository {
	return &SQLRepository{db: db}
}

const selectUser = `SELECT id, username, password_hash, role, created_at, updated_at FROM users`

func (r *SQLRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.getOne(ctx, selectUser+` WHERE username = $1`, username)
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any) (User, error) {
	res, err := r.db.Execute(ctx, query, arg)
	if err != nil {
		return User{}, fmt.Errorf("query user: %w", err)
	}
	row, ok := res.First()
	if !ok {
		return User{}, ErrUserNotFound
	}
	return scanUser(row)
}

// Create inserts an account. PostgreSQL reports the id through RETURNING,
// SQLite through last-insert-id.
func (r *SQLRepository) Create(ctx context.Context, username, passwordHash string, role auth.Role) (User, error) {
	query := `INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3)`
	if r.db.Backend() == storage.BackendPostgres {
		query += ` RETURNING id`
	}

	res, err := r.db.Execute(ctx, query, username, passwordHash, string(role))
	if err != nil {
		if errors.Is(err, storage.ErrConstraintViolation) {
			return User{}, fmt.Errorf("%w: %w", ErrUsernameTaken, err)
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	if !res.HasInsertID {
		return User{}, fmt.Errorf("insert user: no id reported")
	}
	return r.GetByID(ctx, res.InsertID)
}

func (r *SQLRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.Execute(ctx,
		`UPDATE users SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.Affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row storage.Row) (User, error) {
	id, err := row.Int64("id")
	if err != nil {
		return User{}, err
	}
	createdAt, err := row.Time("created_at")
	if err != nil {
		return User{}, err
	}
	updatedAt, err := row.Time("updated_at")
	if err != nil {
		return User{}, err
	}
	return User{
		ID:           id,
		Username:     strings.TrimSpace(row.String("username")),
		Role:         auth.NormalizeRole(row.String("role")),
		PasswordHash: row.String("password_hash"),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}
