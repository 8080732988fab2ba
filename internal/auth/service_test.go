// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/tourways/internal/config"
	"github.com/angelamos/tourways/internal/core"
)

type fakeUserStore struct {
	byID        map[string]*UserInfo
	resetHashes map[string]string
	nextID      int

	// afterResetLookup fires once after GetByResetTokenHash returns,
	// simulating work interleaved between the lookup and what follows.
	afterResetLookup func()
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:        make(map[string]*UserInfo),
		resetHashes: make(map[string]string),
	}
}

func (f *fakeUserStore) GetByEmail(
	ctx context.Context,
	email string,
) (*UserInfo, error) {
	for _, u := range f.byID {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
}

func (f *fakeUserStore) GetByID(
	ctx context.Context,
	id string,
) (*UserInfo, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) Create(
	ctx context.Context,
	name, email, passwordHash, role string,
) (*UserInfo, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return nil, fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
	}

	if role == "" {
		role = "user"
	}

	f.nextID++
	u := &UserInfo{
		ID:           fmt.Sprintf("user-%d", f.nextID),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	f.byID[u.ID] = u

	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
	changedAt time.Time,
) error {
	u, ok := f.byID[userID]
	if !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	t := changedAt
	u.PasswordChangedAt = &t
	return nil
}

func (f *fakeUserStore) SetPasswordReset(
	ctx context.Context,
	userID, tokenHash string,
	expiresAt time.Time,
) error {
	u, ok := f.byID[userID]
	if !ok {
		return fmt.Errorf("set password reset: %w", core.ErrNotFound)
	}
	f.resetHashes[userID] = tokenHash
	t := expiresAt
	u.PasswordResetExpiresAt = &t
	return nil
}

func (f *fakeUserStore) ClearPasswordReset(
	ctx context.Context,
	userID, tokenHash string,
) error {
	u, ok := f.byID[userID]
	if !ok || f.resetHashes[userID] != tokenHash {
		return nil
	}
	delete(f.resetHashes, userID)
	u.PasswordResetExpiresAt = nil
	return nil
}

func (f *fakeUserStore) GetByResetTokenHash(
	ctx context.Context,
	tokenHash string,
) (*UserInfo, error) {
	for id, u := range f.byID {
		if h, ok := f.resetHashes[id]; ok && h == tokenHash {
			copied := *u
			if f.afterResetLookup != nil {
				hook := f.afterResetLookup
				f.afterResetLookup = nil
				hook()
			}
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("get user by reset token: %w", core.ErrNotFound)
}

func (f *fakeUserStore) CompleteReset(
	ctx context.Context,
	userID, tokenHash, newPasswordHash string,
	changedAt time.Time,
) (bool, error) {
	u, ok := f.byID[userID]
	if !ok || f.resetHashes[userID] != tokenHash {
		return false, nil
	}
	u.PasswordHash = newPasswordHash
	t := changedAt
	u.PasswordChangedAt = &t
	delete(f.resetHashes, userID)
	u.PasswordResetExpiresAt = nil
	return true, nil
}

type fakeNotifier struct {
	sentTo    []string
	lastToken string
	failNext  bool
}

func (f *fakeNotifier) SendPasswordReset(
	ctx context.Context,
	email, name, token string,
) error {
	if f.failNext {
		f.failNext = false
		return errors.New("smtp connection refused")
	}
	f.sentTo = append(f.sentTo, email)
	f.lastToken = token
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeUserStore, *fakeNotifier) {
	t.Helper()

	jwtManager, err := NewJWTManager(testJWTConfig())
	require.NoError(t, err)

	store := newFakeUserStore()
	notifier := &fakeNotifier{}

	svc := NewService(jwtManager, store, notifier, config.ResetConfig{
		TokenExpire: 10 * time.Minute,
		TokenLength: 32,
	})

	return svc, store, notifier
}

func signupTestUser(t *testing.T, svc *Service) *AuthResponse {
	t.Helper()

	resp, err := svc.Signup(context.Background(), SignupRequest{
		Name:            "Test User",
		Email:           "test@example.com",
		Password:        "password1234",
		PasswordConfirm: "password1234",
	})
	require.NoError(t, err)
	return resp
}

func TestSignupIssuesToken(t *testing.T) {
	svc, store, _ := newTestService(t)

	resp := signupTestUser(t, svc)

	assert.NotEmpty(t, resp.Tokens.AccessToken)
	assert.Equal(t, "Bearer", resp.Tokens.TokenType)
	assert.Equal(t, "user", resp.User.Role)

	// Only the hash is stored, never the plaintext.
	stored := store.byID[resp.User.ID]
	assert.NotEqual(t, "password1234", stored.PasswordHash)
	valid, err := core.VerifyPassword("password1234", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	signupTestUser(t, svc)

	_, err := svc.Signup(context.Background(), SignupRequest{
		Name:            "Another User",
		Email:           "test@example.com",
		Password:        "password1234",
		PasswordConfirm: "password1234",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	signupTestUser(t, svc)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "test@example.com",
		Password: "password1234",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Tokens.AccessToken)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	signupTestUser(t, svc)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "test@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "password1234",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc, _, _ := newTestService(t)
	signup := signupTestUser(t, svc)

	_, err := svc.ChangePassword(context.Background(), signup.User.ID,
		ChangePasswordRequest{
			CurrentPassword:    "wrong-password",
			NewPassword:        "newpassword1234",
			NewPasswordConfirm: "newpassword1234",
		})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePasswordBackdatesChangeTime(t *testing.T) {
	svc, store, _ := newTestService(t)
	signup := signupTestUser(t, svc)

	resp, err := svc.ChangePassword(context.Background(), signup.User.ID,
		ChangePasswordRequest{
			CurrentPassword:    "password1234",
			NewPassword:        "newpassword1234",
			NewPasswordConfirm: "newpassword1234",
		})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Tokens.AccessToken)

	stored := store.byID[signup.User.ID]
	require.NotNil(t, stored.PasswordChangedAt)
	// Backdated so a token minted right now is not considered stale.
	assert.True(t, stored.PasswordChangedAt.Before(time.Now()))

	_, err = svc.Login(context.Background(), LoginRequest{
		Email:    "test@example.com",
		Password: "newpassword1234",
	})
	require.NoError(t, err)
}

func TestForgotPasswordStoresOnlyDigest(t *testing.T) {
	svc, store, notifier := newTestService(t)
	signup := signupTestUser(t, svc)

	err := svc.ForgotPassword(context.Background(), ForgotPasswordRequest{
		Email: "test@example.com",
	})
	require.NoError(t, err)

	require.Len(t, notifier.sentTo, 1)
	assert.Equal(t, "test@example.com", notifier.sentTo[0])

	storedHash := store.resetHashes[signup.User.ID]
	require.NotEmpty(t, storedHash)
	assert.NotEqual(t, notifier.lastToken, storedHash)
	assert.Equal(t, core.HashToken(notifier.lastToken), storedHash)
	require.NotNil(t, store.byID[signup.User.ID].PasswordResetExpiresAt)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, _, notifier := newTestService(t)

	err := svc.ForgotPassword(context.Background(), ForgotPasswordRequest{
		Email: "nobody@example.com",
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, notifier.sentTo)
}

func TestForgotPasswordSendFailureKeepsToken(t *testing.T) {
	svc, store, notifier := newTestService(t)
	signup := signupTestUser(t, svc)
	notifier.failNext = true

	err := svc.ForgotPassword(context.Background(), ForgotPasswordRequest{
		Email: "test@example.com",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmailDelivery)

	// Delivery failure surfaces but the stored token stays redeemable.
	assert.NotEmpty(t, store.resetHashes[signup.User.ID])
	require.NotNil(t, store.byID[signup.User.ID].PasswordResetExpiresAt)
}

func TestForgotPasswordSecondRequestInvalidatesFirst(t *testing.T) {
	svc, _, notifier := newTestService(t)
	signupTestUser(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, ForgotPasswordRequest{
		Email: "test@example.com",
	}))
	firstToken := notifier.lastToken

	require.NoError(t, svc.ForgotPassword(ctx, ForgotPasswordRequest{
		Email: "test@example.com",
	}))
	secondToken := notifier.lastToken
	require.NotEqual(t, firstToken, secondToken)

	_, err := svc.ResetPassword(ctx, firstToken, ResetPasswordRequest{
		Password:        "newpassword1234",
		PasswordConfirm: "newpassword1234",
	})
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	_, err = svc.ResetPassword(ctx, secondToken, ResetPasswordRequest{
		Password:        "newpassword1234",
		PasswordConfirm: "newpassword1234",
	})
	require.NoError(t, err)
}

func TestResetPasswordHappyPath(t *testing.T) {
	svc, store, notifier := newTestService(t)
	signup := signupTestUser(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, ForgotPasswordRequest{
		Email: "test@example.com",
	}))

	resp, err := svc.ResetPassword(ctx, notifier.lastToken,
		ResetPasswordRequest{
			Password:        "brand-new-pass1",
			PasswordConfirm: "brand-new-pass1",
		})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Tokens.AccessToken)

	stored := store.byID[signup.User.ID]
	assert.Empty(t, store.resetHashes[signup.User.ID])
	assert.Nil(t, stored.PasswordResetExpiresAt)
	require.NotNil(t, stored.PasswordChangedAt)

	_, err = svc.Login(ctx, LoginRequest{
		Email:    "test@example.com",
		Password: "brand-new-pass1",
	})
	require.NoError(t, err)
}

func TestResetPasswordReplayFails(t *testing.T) {
	svc, _, notifier := newTestService(t)
	signupTestUser(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, ForgotPasswordRequest{
		Email: "test@example.com",
	}))
	token := notifier.lastToken

	_, err := svc.ResetPassword(ctx, token, ResetPasswordRequest{
		Password:        "newpassword1234",
		PasswordConfirm: "newpassword1234",
	})
	require.NoError(t, err)

	_, err = svc.ResetPassword(ctx, token, ResetPasswordRequest{
		Password:        "anotherpass1234",
		PasswordConfirm: "anotherpass1234",
	})
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestResetPasswordExpiredTokenCleared(t *testing.T) {
	svc, store, notifier := newTestService(t)
	signup := signupTestUser(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, ForgotPasswordRequest{
		Email: "test@example.com",
	}))

	expired := time.Now().Add(-time.Minute)
	store.byID[signup.User.ID].PasswordResetExpiresAt = &expired

	_, err := svc.ResetPassword(ctx, notifier.lastToken,
		ResetPasswordRequest{
			Password:        "newpassword1234",
			PasswordConfirm: "newpassword1234",
		})
	assert.ErrorIs(t, err, core.ErrTokenExpired)

	// The dead digest is gone; the token cannot be retried.
	assert.Empty(t, store.resetHashes[signup.User.ID])
	assert.Nil(t, store.byID[signup.User.ID].PasswordResetExpiresAt)
}

func TestResetPasswordExpiredCleanupSparesNewToken(t *testing.T) {
	svc, store, notifier := newTestService(t)
	signup := signupTestUser(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, ForgotPasswordRequest{
		Email: "test@example.com",
	}))
	oldToken := notifier.lastToken

	expired := time.Now().Add(-time.Minute)
	store.byID[signup.User.ID].PasswordResetExpiresAt = &expired

	// A second ForgotPassword lands between the expired token's lookup
	// and its cleanup. The cleanup must not wipe the fresh digest.
	var newToken string
	store.afterResetLookup = func() {
		require.NoError(t, svc.ForgotPassword(ctx, ForgotPasswordRequest{
			Email: "test@example.com",
		}))
		newToken = notifier.lastToken
	}

	_, err := svc.ResetPassword(ctx, oldToken, ResetPasswordRequest{
		Password:        "newpassword1234",
		PasswordConfirm: "newpassword1234",
	})
	assert.ErrorIs(t, err, core.ErrTokenExpired)

	require.NotEmpty(t, newToken)
	assert.Equal(
		t,
		core.HashToken(newToken),
		store.resetHashes[signup.User.ID],
	)

	_, err = svc.ResetPassword(ctx, newToken, ResetPasswordRequest{
		Password:        "newpassword1234",
		PasswordConfirm: "newpassword1234",
	})
	require.NoError(t, err)
}

func TestResetPasswordBogusToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ResetPassword(
		context.Background(),
		"made-up-token",
		ResetPasswordRequest{
			Password:        "newpassword1234",
			PasswordConfirm: "newpassword1234",
		},
	)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}
