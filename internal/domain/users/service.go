package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/Togather-Foundation/conflicts/internal/auth"
	"github.com/Togather-Foundation/conflicts/internal/metrics"
	"github.com/Togather-Foundation/conflicts/internal/validation"
	"github.com/rs/zerolog"
)

// PasswordHasher is the slice of the credential store the service needs.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) (bool, error)
	Burn(ctx context.Context, plaintext string)
}

// TokenIssuer mints and checks session tokens.
type TokenIssuer interface {
	Issue(userID int64, username string, role auth.Role) (auth.TokenPair, error)
	VerifyRefresh(token string) (*auth.Claims, error)
}

// Service handles account operations.
type Service struct {
	repo   Repository
	hasher PasswordHasher
	tokens TokenIssuer
	logger zerolog.Logger
}

func NewService(repo Repository, hasher PasswordHasher, tokens TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		logger: logger.With().Str("component", "users").Logger(),
	}
}

// Login checks credentials and issues a token pair. Unknown usernames and
// wrong passwords both yield ErrInvalidCredentials after comparable work.
func (s *Service) Login(ctx context.Context, params LoginParams) (Session, error) {
	if err := validation.Struct(params); err != nil {
		return Session{}, err
	}

	user, err := s.repo.GetByUsername(ctx, params.Username)
	if errors.Is(err, ErrUserNotFound) {
		s.hasher.Burn(ctx, params.Password)
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return Session{}, fmt.Errorf("load user: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, params.Password, user.PasswordHash)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return Session{}, err
	}
	if !ok {
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return Session{}, ErrInvalidCredentials
	}

	session, err := s.issue(user)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		return Session{}, err
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return session, nil
}

// Refresh exchanges a refresh token for a new pair. The account is reloaded
// so a changed role takes effect.
func (s *Service) Refresh(ctx context.Context, params RefreshParams) (Session, error) {
	if err := validation.Struct(params); err != nil {
		return Session{}, err
	}

	claims, err := s.tokens.VerifyRefresh(params.RefreshToken)
	if err != nil {
		return Session{}, err
	}
	id, err := claims.UserID()
	if err != nil {
		return Session{}, err
	}

	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	return s.issue(user)
}

func (s *Service) issue(user User) (Session, error) {
	if !user.Role.Valid() {
		return Session{}, fmt.Errorf("user %d has unknown role", user.ID)
	}
	pair, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return Session{}, fmt.Errorf("issue tokens: %w", err)
	}
	return Session{User: user.Profile(), Tokens: pair}, nil
}

// Me returns the profile of the authenticated caller.
func (s *Service) Me(ctx context.Context, id auth.Identity) (Profile, error) {
	user, err := s.repo.GetByID(ctx, id.UserID)
	if err != nil {
		return Profile{}, err
	}
	return user.Profile(), nil
}

// Create registers an account. Role defaults to user.
func (s *Service) Create(ctx context.Context, params CreateParams) (User, error) {
	if err := validation.Struct(params); err != nil {
		return User{}, err
	}
	role := auth.RoleUser
	if params.Role != "" {
		role = auth.NormalizeRole(params.Role)
	}

	hash, err := s.hasher.Hash(ctx, params.Password)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.Create(ctx, params.Username, hash, role)
	if err != nil {
		return User{}, err
	}

	s.logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Str("role", string(user.Role)).Msg("user created")
	return user, nil
}

// UpdatePassword rotates the password of an existing account.
func (s *Service) UpdatePassword(ctx context.Context, params UpdatePasswordParams) error {
	if err := validation.Struct(params); err != nil {
		return err
	}
	user, err := s.repo.GetByUsername(ctx, params.Username)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(ctx, params.Password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("password updated")
	return nil
}
