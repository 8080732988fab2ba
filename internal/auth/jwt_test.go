// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/tourways/internal/config"
	"github.com/angelamos/tourways/internal/core"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:   "0123456789abcdef0123456789abcdef",
		Expire:   time.Hour,
		Issuer:   "tourways",
		Audience: "tourways-api",
	}
}

func TestIssueAndVerify(t *testing.T) {
	manager, err := NewJWTManager(testJWTConfig())
	require.NoError(t, err)

	token, expiresAt, err := manager.Issue("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := manager.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.WithinDuration(t, time.Now(), claims.IssuedAt, 5*time.Second)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	manager, err := NewJWTManager(testJWTConfig())
	require.NoError(t, err)

	otherCfg := testJWTConfig()
	otherCfg.Secret = "ffffffffffffffffffffffffffffffff"
	other, err := NewJWTManager(otherCfg)
	require.NoError(t, err)

	token, _, err := manager.Issue("user-123")
	require.NoError(t, err)

	_, err = other.Verify(context.Background(), token)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	manager, err := NewJWTManager(testJWTConfig())
	require.NoError(t, err)

	_, err = manager.Verify(context.Background(), "not.a.token")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestVerifyDistinguishesExpired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Expire = -time.Minute
	manager, err := NewJWTManager(cfg)
	require.NoError(t, err)

	token, _, err := manager.Issue("user-123")
	require.NoError(t, err)

	_, err = manager.Verify(context.Background(), token)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	manager, err := NewJWTManager(testJWTConfig())
	require.NoError(t, err)

	otherCfg := testJWTConfig()
	otherCfg.Audience = "other-api"
	other, err := NewJWTManager(otherCfg)
	require.NoError(t, err)

	token, _, err := other.Issue("user-123")
	require.NoError(t, err)

	_, err = manager.Verify(context.Background(), token)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}
