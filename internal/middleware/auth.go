// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/angelamos/tourways/internal/core"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
	IdentityKey contextKey = "identity"
)

type TokenClaims struct {
	UserID   string
	IssuedAt time.Time
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*TokenClaims, error)
}

// Identity is the resolved user attached to an authenticated request.
type Identity struct {
	ID                string
	Email             string
	Role              string
	PasswordChangedAt *time.Time
}

// IdentityLoader resolves a token subject to a live user. Inactive
// (soft-deleted) users must not be returned.
type IdentityLoader interface {
	LoadIdentity(ctx context.Context, userID string) (*Identity, error)
}

// Authenticator validates the bearer token, resolves the user, and
// rejects tokens issued before the user's most recent password change.
func Authenticator(
	verifier TokenVerifier,
	users IdentityLoader,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)

			if token == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("missing authorization token"),
				)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			ident, err := users.LoadIdentity(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					core.JSONError(w, core.UnauthorizedError(
						"the user belonging to this token no longer exists",
					))
					return
				}
				core.InternalServerError(w, err)
				return
			}

			if changedAfterIssue(ident.PasswordChangedAt, claims.IssuedAt) {
				core.JSONError(w, core.TokenStaleError())
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, ident.ID)
			ctx = context.WithValue(ctx, UserRoleKey, ident.Role)
			ctx = context.WithValue(ctx, IdentityKey, ident)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthenticator resolves an identity when a usable bearer
// token accompanies the request, and otherwise lets it through as
// anonymous. Invalid, stale, or orphaned tokens degrade to anonymous
// instead of rejecting; routes that require identity use Authenticator.
func OptionalAuthenticator(
	verifier TokenVerifier,
	users IdentityLoader,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ident, err := users.LoadIdentity(r.Context(), claims.UserID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if changedAfterIssue(ident.PasswordChangedAt, claims.IssuedAt) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, ident.ID)
			ctx = context.WithValue(ctx, UserRoleKey, ident.Role)
			ctx = context.WithValue(ctx, IdentityKey, ident)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// changedAfterIssue compares at second granularity, matching the iat
// resolution of the token itself. The writer of password_changed_at
// applies a one-second backdate so a token minted immediately after a
// change still passes.
func changedAfterIssue(changedAt *time.Time, issuedAt time.Time) bool {
	if changedAt == nil {
		return false
	}
	return issuedAt.Unix() < changedAt.Unix()
}

// RequireRole gates a route to an allow-list of roles. It must run
// after Authenticator; an unresolved identity reports 401, an
// insufficient role 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole := GetUserRole(r.Context())

			if userRole == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("authentication required"),
				)
				return
			}

			if _, ok := roleSet[userRole]; !ok {
				core.JSONError(
					w,
					core.ForbiddenError(
						"you do not have permission to perform this action",
					),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole("admin")(next)
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenStale):
		core.JSONError(w, core.TokenStaleError())
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}

func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

func GetUserRole(ctx context.Context) string {
	if role, ok := ctx.Value(UserRoleKey).(string); ok {
		return role
	}
	return ""
}

func GetIdentity(ctx context.Context) *Identity {
	if ident, ok := ctx.Value(IdentityKey).(*Identity); ok {
		return ident
	}
	return nil
}

func IsAuthenticated(ctx context.Context) bool {
	return GetUserID(ctx) != ""
}
