// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/angelamos/tourways/internal/config"
	"github.com/angelamos/tourways/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
	ErrEmailDelivery      = errors.New("email delivery failed")
)

// passwordChangeSkew backdates password_changed_at so a token minted
// in the same second as the change is not rejected as stale.
const passwordChangeSkew = time.Second

type UserInfo struct {
	ID                     string
	Name                   string
	Email                  string
	PasswordHash           string
	Role                   string
	PasswordChangedAt      *time.Time
	PasswordResetExpiresAt *time.Time
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(
		ctx context.Context,
		name, email, passwordHash, role string,
	) (*UserInfo, error)
	UpdatePassword(
		ctx context.Context,
		userID, passwordHash string,
		changedAt time.Time,
	) error
	SetPasswordReset(
		ctx context.Context,
		userID, tokenHash string,
		expiresAt time.Time,
	) error
	ClearPasswordReset(ctx context.Context, userID, tokenHash string) error
	GetByResetTokenHash(
		ctx context.Context,
		tokenHash string,
	) (*UserInfo, error)
	CompleteReset(
		ctx context.Context,
		userID, tokenHash, newPasswordHash string,
		changedAt time.Time,
	) (bool, error)
}

// Notifier delivers the plaintext reset token to the account owner.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, name, token string) error
}

type Service struct {
	jwt      *JWTManager
	users    UserProvider
	notifier Notifier
	reset    config.ResetConfig
}

func NewService(
	jwt *JWTManager,
	users UserProvider,
	notifier Notifier,
	resetCfg config.ResetConfig,
) *Service {
	return &Service{
		jwt:      jwt,
		users:    users,
		notifier: notifier,
		reset:    resetCfg,
	}
}

func (s *Service) Signup(
	ctx context.Context,
	req SignupRequest,
) (*AuthResponse, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(
		ctx,
		req.Name,
		req.Email,
		passwordHash,
		req.Role,
	)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.createAuthResponse(user)
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	return s.createAuthResponse(user)
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID string,
	req ChangePasswordRequest,
) (*AuthResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, err := core.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	newHash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	changedAt := time.Now().Add(-passwordChangeSkew)
	if err := s.users.UpdatePassword(ctx, userID, newHash, changedAt); err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}

	// Every earlier token is now stale; hand back a fresh one.
	return s.createAuthResponse(user)
}

// ForgotPassword issues a single-use reset token and emails it out.
// Only the SHA-256 digest is stored; a repeat request overwrites the
// previous digest, leaving exactly one redeemable token.
func (s *Service) ForgotPassword(
	ctx context.Context,
	req ForgotPasswordRequest,
) error {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	token, err := core.GenerateSecureToken(s.reset.TokenLength)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := time.Now().Add(s.reset.TokenExpire)
	tokenHash := core.HashToken(token)

	if err := s.users.SetPasswordReset(ctx, user.ID, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, user.Name, token); err != nil {
		// The stored token stays redeemable; delivery can be retried
		// without invalidating it. The caller still learns it failed.
		slog.Error("reset email delivery failed",
			"error", err,
			"user_id", user.ID,
		)
		return fmt.Errorf("send reset email: %w: %w", ErrEmailDelivery, err)
	}

	return nil
}

// ResetPassword redeems a plaintext reset token. Redemption is a
// single conditional update keyed on the stored digest, so concurrent
// attempts with the same token cannot both succeed.
func (s *Service) ResetPassword(
	ctx context.Context,
	token string,
	req ResetPasswordRequest,
) (*AuthResponse, error) {
	tokenHash := core.HashToken(token)

	user, err := s.users.GetByResetTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("reset password: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("get user by reset token: %w", err)
	}

	if user.PasswordResetExpiresAt == nil ||
		time.Now().After(*user.PasswordResetExpiresAt) {
		// Expired tokens are cleared eagerly so the row doesn't carry
		// a dead digest around. The clear is keyed on the digest just
		// read, so a fresh token stored in the meantime is untouched.
		if clearErr := s.users.ClearPasswordReset(ctx, user.ID, tokenHash); clearErr != nil {
			slog.Error("failed to clear expired reset token",
				"error", clearErr,
				"user_id", user.ID,
			)
		}
		return nil, fmt.Errorf("reset password: %w", core.ErrTokenExpired)
	}

	newHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	changedAt := time.Now().Add(-passwordChangeSkew)
	ok, err := s.users.CompleteReset(ctx, user.ID, tokenHash, newHash, changedAt)
	if err != nil {
		return nil, fmt.Errorf("complete reset: %w", err)
	}
	if !ok {
		// Lost the race to a concurrent redemption.
		return nil, fmt.Errorf("reset password: %w", core.ErrTokenInvalid)
	}

	return s.createAuthResponse(user)
}

func (s *Service) GetCurrentUser(
	ctx context.Context,
	userID string,
) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}

func (s *Service) createAuthResponse(user *UserInfo) (*AuthResponse, error) {
	accessToken, expiresAt, err := s.jwt.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &AuthResponse{
		User: UserResponse{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		},
		Tokens: TokenResponse{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresAt:   expiresAt,
		},
	}, nil
}
