package auth

import "context"

// Identity is the authenticated caller, derived from a verified token.
type Identity struct {
	UserID   int64
	Username string
	Role     Role
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// IdentityFromClaims converts verified claims into an Identity.
func IdentityFromClaims(claims *Claims) (Identity, error) {
	userID, err := claims.UserID()
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		UserID:   userID,
		Username: claims.Username,
		Role:     NormalizeRole(claims.Role),
	}, nil
}
