package auth

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var ErrForbidden = errors.New("insufficient role")

// rank orders roles so a higher role satisfies any lower requirement.
var rank = map[Role]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

// NormalizeRole maps a stored or claimed role onto a known Role. Unknown
// values yield the empty Role, which satisfies nothing.
func NormalizeRole(role string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(role))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleUser:
		return RoleUser
	default:
		return ""
	}
}

func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// Satisfies reports whether r is at least as privileged as required.
func (r Role) Satisfies(required Role) bool {
	have, ok := rank[r]
	if !ok {
		return false
	}
	need, ok := rank[required]
	return ok && have >= need
}

// Authorize returns ErrForbidden unless the identity holds the required role
// or a higher one.
func Authorize(id Identity, required Role) error {
	if !id.Role.Satisfies(required) {
		return ErrForbidden
	}
	return nil
}

func IsAdmin(role string) bool {
	return NormalizeRole(role) == RoleAdmin
}
