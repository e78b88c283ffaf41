package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/book-catalog/internal/apperror"
	"github.com/sakif/book-catalog/internal/model"
	"github.com/sakif/book-catalog/internal/response"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "user", u), ANY package that knows the string "user"
// can read or shadow your value. A package-private type prevents collisions.
type contextKey string

const userKey contextKey = "user"

// IdentityResolver turns a raw token into the caller's live user record.
// service.AuthService implements it; the middleware only needs this method.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (*model.User, error)
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the token from the Authorization header, resolves it to the
// caller's user record and stores that record in the request context.
// Failures stop the chain with an envelope:
//   - missing, malformed, expired or revoked token → 401
//   - deactivated user → 403
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new http.Handler that
// wraps it. Chi applies them in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := tokenFromHeader(r)
			if !ok {
				response.Error(w, apperror.Unauthorized("No token provided"))
				return
			}

			user, err := resolver.ResolveIdentity(r.Context(), token)
			if err != nil {
				response.Error(w, err)
				return
			}
			if !user.Active {
				response.Error(w, apperror.Forbidden("INACTIVE USER"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user. Handlers' tests use it to
// fake an authenticated request.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated user from the request context.
//
// Usage in handlers:
//
//	user, ok := auth.UserFromContext(r.Context())
//	if !ok {
//	    // route is not behind RequireAuth
//	}
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// tokenFromHeader accepts "Bearer <jwt>" and the older "Token <jwt>" scheme.
func tokenFromHeader(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found {
		return "", false
	}
	if !strings.EqualFold(scheme, "Bearer") && !strings.EqualFold(scheme, "Token") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
