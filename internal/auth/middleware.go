package auth

import (
	"context"
	"net/http"
	"strings"

	finerrors "github.com/finsight/finsight/internal/errors"
)

type contextKey string

const usernameKey contextKey = "auth.username"

// Username returns the authenticated username, if any.
func Username(ctx context.Context) string {
	if v, ok := ctx.Value(usernameKey).(string); ok {
		return v
	}
	return ""
}

// OptionalToken stores the token subject in the request context when the
// request carries a valid bearer token, and passes anonymous or invalid
// requests through untouched. Handlers that attribute work to a user read
// Username and treat the empty string as anonymous.
func OptionalToken(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if ok {
				if username, err := issuer.Verify(strings.TrimSpace(token)); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), usernameKey, username))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireToken rejects requests without a valid bearer token and stores the
// token subject in the request context.
func RequireToken(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				finerrors.RespondWithEnvelope(w, r, finerrors.NewUnauthorizedError("missing bearer token"))
				return
			}

			username, err := issuer.Verify(strings.TrimSpace(token))
			if err != nil {
				finerrors.RespondWithEnvelope(w, r, finerrors.WrapUnauthorized(r.Context(), err, "invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), usernameKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
