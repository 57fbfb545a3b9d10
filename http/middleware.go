package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rkotari/smartdrive"
)

// TokenVerifier verifies a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// subjectKey is the context key for the authenticated subject.
type subjectKey struct{}

// SubjectFromContext returns the authenticated subject (email) bound by
// RequireAuth, or an empty string if the request was not authenticated.
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey{}).(string)
	return subject
}

// withSubject returns a context with the subject bound; exported to tests via
// handlers only, never set from request input.
func withSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// RequireAuth creates middleware that rejects requests without a valid bearer
// token. Credential material that is absent or not in bearer form is rejected
// without attempting verification. On success the subject is bound to the
// request context and the request proceeds. The middleware holds no state and
// must run before any handler that assumes an authenticated subject.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				WriteError(w, http.StatusUnauthorized, "unauthenticated", "Missing or invalid token")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				WriteError(w, http.StatusUnauthorized, "unauthenticated", "Missing or invalid token")
				return
			}

			subject, err := verifier.Verify(parts[1])
			if err != nil {
				if errors.Is(err, smartdrive.ErrTokenExpired) {
					WriteError(w, http.StatusUnauthorized, "token_expired", "Token expired")
					return
				}
				WriteError(w, http.StatusUnauthorized, "invalid_token", "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withSubject(r.Context(), subject)))
		})
	}
}
