package middleware

import (
	"net/http"

	"github.com/Togather-Foundation/conflicts/internal/api/problem"
	"github.com/Togather-Foundation/conflicts/internal/auth"
	"github.com/Togather-Foundation/conflicts/internal/metrics"
	"github.com/rs/zerolog"
)

// TokenVerifier validates an access token without I/O.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Authenticate requires a valid bearer access token and attaches the caller's
// identity to the request context. Failures answer 401 with a reason of
// missing, invalid or expired.
func Authenticate(verifier TokenVerifier, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				reject(w, r, auth.ErrInvalidToken, env)
				return
			}

			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				reject(w, r, err, env)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				reject(w, r, err, env)
				return
			}

			identity, err := auth.IdentityFromClaims(claims)
			if err != nil {
				reject(w, r, err, env)
				return
			}

			ctx := auth.WithIdentity(r.Context(), identity)
			logger := zerolog.Ctx(ctx).With().Int64("user_id", identity.UserID).Logger()
			ctx = logger.WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole must run after Authenticate. It answers 403 when the caller's
// role ranks below required and 401 when no identity is present.
func RequireRole(required auth.Role, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				reject(w, r, auth.ErrMissingToken, env)
				return
			}
			if err := auth.Authorize(identity, required); err != nil {
				metrics.AuthFailures.WithLabelValues("forbidden").Inc()
				problem.Error(w, r, err, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, err error, env string) {
	metrics.AuthFailures.WithLabelValues(auth.Reason(err)).Inc()
	problem.Error(w, r, err, env)
}
