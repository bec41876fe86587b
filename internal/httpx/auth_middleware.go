package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bookstore/internal/platform/crypto"
	"bookstore/internal/user"

	"github.com/rs/zerolog"
)

// UserLookup resolves the subject of a verified token.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

// AuthMiddleware attaches the caller identified by a Bearer token. Requests
// without an Authorization header pass through anonymously; whether that
// is acceptable is decided by the permission policy. A present but invalid
// token, or one for an unknown user, is rejected with 401.
func AuthMiddleware(secret string, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				JSONError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Invalid authorization header", nil)
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := crypto.ParseToken(secret, token)
			if err != nil {
				JSONError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Invalid token", nil)
				return
			}

			u, err := users.GetByID(r.Context(), claims.Sub)
			if err != nil {
				if errors.Is(err, user.ErrNotFound) {
					JSONError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Unknown user", nil)
					return
				}
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("resolve caller")
				JSONError(w, r, http.StatusInternalServerError, CodeInternal, "Internal server error", nil)
				return
			}

			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("user_id", u.ID)
			})
			ctx := ContextWithUser(r.Context(), &u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
