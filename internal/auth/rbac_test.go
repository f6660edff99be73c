package auth

import (
	"context"
	"errors"
	"testing"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		required Role
		wantErr  bool
	}{
		{"admin satisfies admin", RoleAdmin, RoleAdmin, false},
		{"admin satisfies user", RoleAdmin, RoleUser, false},
		{"user satisfies user", RoleUser, RoleUser, false},
		{"user lacks admin", RoleUser, RoleAdmin, true},
		{"unknown role satisfies nothing", Role("guest"), RoleUser, true},
		{"empty role satisfies nothing", "", RoleUser, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(Identity{UserID: 1, Username: "x", Role: tt.role}, tt.required)
			if tt.wantErr && !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalizeRole(t *testing.T) {
	if NormalizeRole(" ADMIN ") != RoleAdmin {
		t.Fatal("expected admin")
	}
	if NormalizeRole("user") != RoleUser {
		t.Fatal("expected user")
	}
	if NormalizeRole("editor") != "" {
		t.Fatal("expected unknown roles to normalize to empty")
	}
	if !IsAdmin("admin") || IsAdmin("user") {
		t.Fatal("IsAdmin mismatch")
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatal("expected no identity on empty context")
	}

	ctx := WithIdentity(context.Background(), Identity{UserID: 9, Username: "zoe", Role: RoleUser})
	id, ok := IdentityFromContext(ctx)
	if !ok || id.UserID != 9 || id.Username != "zoe" || id.Role != RoleUser {
		t.Fatalf("unexpected identity %#v", id)
	}
}

func TestIdentityFromClaims(t *testing.T) {
	claims := &Claims{Username: "zoe", Role: "Admin"}
	claims.Subject = "12"

	id, err := IdentityFromClaims(claims)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.UserID != 12 || id.Role != RoleAdmin {
		t.Fatalf("unexpected identity %#v", id)
	}

	claims.Subject = "abc"
	if _, err := IdentityFromClaims(claims); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}
