package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTIssueVerify(t *testing.T) {
	manager := NewJWTManager(testSecret, time.Hour, "issuer")
	pair, err := manager.Issue(7, "alice", RoleAdmin)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if pair.TokenType != "Bearer" || pair.ExpiresIn != 3600 {
		t.Fatalf("unexpected pair metadata: %#v", pair)
	}

	claims, err := manager.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	id, err := claims.UserID()
	if err != nil || id != 7 {
		t.Fatalf("expected user id 7, got %d (%v)", id, err)
	}
	if claims.Username != "alice" || claims.Role != "admin" || claims.Type != TokenTypeAccess {
		t.Fatalf("unexpected claims: %#v", claims)
	}
	if claims.ID == "" {
		t.Fatal("expected a token id")
	}
}

func TestJWTIssueInvalid(t *testing.T) {
	manager := NewJWTManager(testSecret, time.Hour, "issuer")
	if _, err := manager.Issue(0, "alice", RoleUser); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
	if _, _, err := NewJWTManager("", time.Hour, "issuer").IssueAccess(1, "alice", RoleUser); !errors.Is(err, ErrInvalidMasterSecret) {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestJWTVerifyMissing(t *testing.T) {
	manager := NewJWTManager(testSecret, time.Hour, "issuer")
	_, err := manager.Verify("  ")
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if Reason(err) != "missing" {
		t.Fatalf("expected reason missing, got %s", Reason(err))
	}
}

func TestJWTVerifyExpired(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := issuedAt
	manager := NewJWTManager(testSecret, time.Hour, "issuer", WithClock(func() time.Time { return now }))

	token, _, err := manager.IssueAccess(1, "alice", RoleUser)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	now = issuedAt.Add(2 * time.Hour)
	_, err = manager.Verify(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired token error, got %v", err)
	}
	if errors.Is(err, ErrInvalidToken) {
		t.Fatal("expired tokens must not be reported as invalid")
	}
	if Reason(err) != "expired" {
		t.Fatalf("expected reason expired, got %s", Reason(err))
	}
}

func TestJWTVerifyTampered(t *testing.T) {
	manager := NewJWTManager(testSecret, time.Hour, "issuer")
	token, _, err := manager.IssueAccess(1, "alice", RoleUser)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	other := NewJWTManager("another-secret-another-secret-xx", time.Hour, "issuer")
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidSignature) || !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature error, got %v", err)
	}

	parts := strings.Split(token, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	if _, err := manager.Verify(strings.Join(parts, ".")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for tampered signature, got %v", err)
	}

	_, err = manager.Verify("not-a-jwt")
	if !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected malformed token error, got %v", err)
	}
	if Reason(err) != "invalid" {
		t.Fatalf("expected reason invalid, got %s", Reason(err))
	}
}

func TestJWTVerifyRejectsOtherAlgorithms(t *testing.T) {
	manager := NewJWTManager(testSecret, time.Hour, "issuer")
	claims := &Claims{
		Username: "mallory",
		Role:     "admin",
		Type:     TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := manager.Verify(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg none to be rejected, got %v", err)
	}
}

func TestJWTTokenTypesAreNotInterchangeable(t *testing.T) {
	manager := NewJWTManager(testSecret, time.Hour, "issuer", WithRefreshExpiry(48*time.Hour))
	pair, err := manager.Issue(3, "bob", RoleUser)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := manager.Verify(pair.RefreshToken); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("refresh token must not authenticate requests, got %v", err)
	}
	if _, err := manager.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("access token must not refresh, got %v", err)
	}

	claims, err := manager.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 48*time.Hour {
		t.Fatalf("expected 48h refresh lifetime, got %s", got)
	}
}

func TestJWTVerifyWrongIssuer(t *testing.T) {
	issuer := NewJWTManager(testSecret, time.Hour, "someone-else")
	token, _, err := issuer.IssueAccess(1, "alice", RoleUser)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := NewJWTManager(testSecret, time.Hour, "issuer").Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected issuer mismatch to be invalid, got %v", err)
	}
}

func TestTokenFromHeader(t *testing.T) {
	if _, err := TokenFromHeader("nope"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if _, err := TokenFromHeader("Basic abc"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if token, err := TokenFromHeader("Bearer token"); err != nil || token != "token" {
		t.Fatalf("expected token, got %s err %v", token, err)
	}
}
