package users

import (
	"errors"
	"time"

	"github.com/Togather-Foundation/conflicts/internal/auth"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username is already taken")
)

// User is an account row. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Role         auth.Role `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the public view returned by the API.
type Profile struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Username: u.Username, Role: u.Role}
}

type LoginParams struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=72"`
}

type RefreshParams struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type CreateParams struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type UpdatePasswordParams struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Session is the result of a successful login or refresh.
type Session struct {
	User   Profile        `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}
