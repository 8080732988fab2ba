// AngelaMos | 2026
// jwt.go

package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/angelamos/tourways/internal/config"
	"github.com/angelamos/tourways/internal/core"
	"github.com/angelamos/tourways/internal/middleware"
)

// JWTManager issues and verifies stateless HS256 session tokens. The
// signing secret is process-wide configuration; nothing about a token
// is persisted server-side, so the only server-driven invalidation is
// the password-change staleness check in the access guard.
type JWTManager struct {
	key    jwk.Key
	config config.JWTConfig
}

func NewJWTManager(cfg config.JWTConfig) (*JWTManager, error) {
	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("import signing secret: %w", err)
	}

	if setErr := key.Set(jwk.AlgorithmKey, jwa.HS256()); setErr != nil {
		return nil, fmt.Errorf("set algorithm: %w", setErr)
	}

	return &JWTManager{key: key, config: cfg}, nil
}

// Issue creates a signed token bound to userID, valid from now until
// the configured expiry horizon.
func (m *JWTManager) Issue(userID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.config.Expire)

	token, err := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.config.Issuer).
		Audience([]string{m.config.Audience}).
		Subject(userID).
		IssuedAt(now).
		Expiration(expiresAt).
		NotBefore(now).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return string(signed), expiresAt, nil
}

// Verify checks signature, expiry, issuer, and audience, and returns
// the subject and issue time. Expired tokens are distinguished from
// every other failure mode.
func (m *JWTManager) Verify(
	ctx context.Context,
	tokenString string,
) (*middleware.TokenClaims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), m.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithAudience(m.config.Audience),
	)
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	issuedAt, ok := token.IssuedAt()
	if !ok {
		return nil, fmt.Errorf(
			"verify token: missing issued-at: %w",
			core.ErrTokenInvalid,
		)
	}

	return &middleware.TokenClaims{
		UserID:   subject,
		IssuedAt: issuedAt,
	}, nil
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}
