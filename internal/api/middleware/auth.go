package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/freethub/groups-service/internal/domain"
	"github.com/freethub/groups-service/internal/storage"
)

type contextKey string

const (
	actingUserContextKey contextKey = "acting_user"
	bootstrapContextKey  contextKey = "bootstrap"
)

// Auth creates authentication middleware. Requests carry a bearer session
// token; the token hash is looked up in storage and the matching user
// becomes the acting user for the request. The bootstrap key, when
// configured, authenticates provisioning requests that have no acting
// user.
func Auth(store storage.Storage, bootstrapKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"code":401,"message":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, `{"code":401,"message":"invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == "" {
				http.Error(w, `{"code":401,"message":"empty token"}`, http.StatusUnauthorized)
				return
			}

			ctx := r.Context()

			if bootstrapKey != "" && subtle.ConstantTimeCompare([]byte(token), []byte(bootstrapKey)) == 1 {
				ctx = context.WithValue(ctx, bootstrapContextKey, true)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			session, err := store.GetSessionByTokenHash(ctx, hashToken(token))
			if err != nil {
				if err == domain.ErrNotFound {
					http.Error(w, `{"code":401,"message":"invalid session token"}`, http.StatusUnauthorized)
					return
				}
				http.Error(w, `{"code":500,"message":"internal server error"}`, http.StatusInternalServerError)
				return
			}
			if session.Expired(time.Now()) {
				http.Error(w, `{"code":401,"message":"session expired"}`, http.StatusUnauthorized)
				return
			}

			user, err := store.GetUser(ctx, session.UserID)
			if err != nil {
				http.Error(w, `{"code":401,"message":"invalid session token"}`, http.StatusUnauthorized)
				return
			}

			// Update last activity (fire and forget)
			go func() {
				_ = store.TouchUserActivity(context.Background(), user.ID)
			}()

			ctx = context.WithValue(ctx, actingUserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// hashToken creates a SHA-256 hash of the session token.
// Tokens are high-entropy random strings, so a fast hash is sufficient
// for lookups.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// HashToken exposes the token hashing used for storage lookups.
func HashToken(token string) string {
	return hashToken(token)
}

// ActingUser retrieves the acting user from the request context, or nil
// for bootstrap-authenticated requests.
func ActingUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(actingUserContextKey).(*domain.User)
	return user
}

// IsBootstrap reports whether the request authenticated with the
// bootstrap key.
func IsBootstrap(ctx context.Context) bool {
	ok, _ := ctx.Value(bootstrapContextKey).(bool)
	return ok
}
