package security

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"moneta/internal/log"
)

type contextKey string

const (
	userKey contextKey = "user_id"

	// HeaderUserID carries the caller identity set by the upstream auth layer.
	HeaderUserID = "X-User-ID"
	// HeaderCronSecret carries the shared secret for job and admin routes.
	HeaderCronSecret = "x-cron-secret"
)

// Unauthorized writes the 401 body used by every guard.
type Unauthorized func(w http.ResponseWriter, r *http.Request)

// RequireUser rejects requests without a caller identity and stores it in
// the request context.
func RequireUser(deny Unauthorized, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			deny(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
	})
}

func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// UserFromContext returns the identity stored by RequireUser.
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey).(string)
	return id, ok && id != ""
}

// RequireSecret admits requests whose x-cron-secret header equals secret.
// An empty secret rejects everything.
func RequireSecret(secret string, deny Unauthorized, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SecretMatches(secret, r.Header.Get(HeaderCronSecret)) {
			slog.WarnContext(r.Context(), "Rejected request with invalid secret",
				log.Audit(),
				log.FieldComponent, log.ComponentSecurity,
				log.FieldPath, r.URL.Path)
			deny(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SecretMatches compares in constant time.
func SecretMatches(secret, given string) bool {
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(given)) == 1
}
