package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sbsimple/backend/internal/models"
)

type contextKey string

const ctxSessionKey contextKey = "session"

// SessionValidator checks a session token and returns the live session
// behind it.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*models.Session, error)
}

// SessionAuth authenticates requests by the Bearer session token. On
// success the live session is placed in the request context; everything
// else is a 401.
func SessionAuth(authority SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearer(r)
			if token == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}

			sess, err := authority.Validate(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":"session invalid or expired"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// SessionFromCtx returns the authenticated session or nil.
func SessionFromCtx(ctx context.Context) *models.Session {
	s, _ := ctx.Value(ctxSessionKey).(*models.Session)
	return s
}

// WithSession returns a context carrying the given session.
func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey, s)
}

// ExtractBearer returns the Bearer token from the Authorization header, or "".
func ExtractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
