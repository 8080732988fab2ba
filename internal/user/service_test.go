// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/tourways/internal/core"
)

type fakeUserRepo struct {
	users map[string]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
	}
	user.Active = true
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(
	ctx context.Context,
	id string,
	includeInactive bool,
) (*User, error) {
	user, ok := f.users[id]
	if !ok || (!user.Active && !includeInactive) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	for _, user := range f.users {
		if user.Email == email && user.Active {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, user *User) error {
	existing, ok := f.users[user.ID]
	if !ok || !existing.Active {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	existing.Name = user.Name
	existing.Email = user.Email
	return nil
}

func (f *fakeUserRepo) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
	changedAt time.Time,
) error {
	user, ok := f.users[id]
	if !ok || !user.Active {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	user.PasswordHash = passwordHash
	t := changedAt
	user.PasswordChangedAt = &t
	return nil
}

func (f *fakeUserRepo) SetPasswordReset(
	ctx context.Context,
	id, tokenHash string,
	expiresAt time.Time,
) error {
	user, ok := f.users[id]
	if !ok || !user.Active {
		return fmt.Errorf("set password reset: %w", core.ErrNotFound)
	}
	h := tokenHash
	t := expiresAt
	user.PasswordResetTokenHash = &h
	user.PasswordResetExpiresAt = &t
	return nil
}

func (f *fakeUserRepo) ClearPasswordReset(
	ctx context.Context,
	id, tokenHash string,
) error {
	user, ok := f.users[id]
	if !ok || user.PasswordResetTokenHash == nil ||
		*user.PasswordResetTokenHash != tokenHash {
		return nil
	}
	user.PasswordResetTokenHash = nil
	user.PasswordResetExpiresAt = nil
	return nil
}

func (f *fakeUserRepo) GetByResetTokenHash(
	ctx context.Context,
	tokenHash string,
) (*User, error) {
	for _, user := range f.users {
		if user.Active && user.PasswordResetTokenHash != nil &&
			*user.PasswordResetTokenHash == tokenHash {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("get user by reset token: %w", core.ErrNotFound)
}

func (f *fakeUserRepo) CompleteReset(
	ctx context.Context,
	id, tokenHash, newPasswordHash string,
	changedAt time.Time,
) (bool, error) {
	user, ok := f.users[id]
	if !ok || user.PasswordResetTokenHash == nil ||
		*user.PasswordResetTokenHash != tokenHash {
		return false, nil
	}
	user.PasswordHash = newPasswordHash
	t := changedAt
	user.PasswordChangedAt = &t
	user.PasswordResetTokenHash = nil
	user.PasswordResetExpiresAt = nil
	return true, nil
}

func (f *fakeUserRepo) UpdateRole(ctx context.Context, id, role string) error {
	user, ok := f.users[id]
	if !ok || !user.Active {
		return fmt.Errorf("update role: %w", core.ErrNotFound)
	}
	user.Role = role
	return nil
}

func (f *fakeUserRepo) SoftDelete(ctx context.Context, id string) error {
	user, ok := f.users[id]
	if !ok || !user.Active {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}
	user.Active = false
	return nil
}

func (f *fakeUserRepo) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	var out []User
	for _, user := range f.users {
		if !user.Active && !params.IncludeInactive {
			continue
		}
		out = append(out, *user)
	}
	return out, len(out), nil
}

func (f *fakeUserRepo) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	for _, user := range f.users {
		if user.Email == email && user.Active {
			return true, nil
		}
	}
	return false, nil
}

func createTestUser(t *testing.T, svc *Service, email string) string {
	t.Helper()

	info, err := svc.Create(
		context.Background(),
		"Test User",
		email,
		"$argon2id$fake-hash",
		"",
	)
	require.NoError(t, err)
	return info.ID
}

func TestGetUserSeesSoftDeleted(t *testing.T) {
	svc := NewService(newFakeUserRepo())
	ctx := context.Background()
	id := createTestUser(t, svc, "gone@example.com")

	require.NoError(t, svc.DeleteMe(ctx, id))

	// The admin surface can still inspect the deactivated account.
	user, err := svc.GetUser(ctx, id)
	require.NoError(t, err)
	assert.False(t, user.Active)
}

func TestLoadIdentityExcludesSoftDeleted(t *testing.T) {
	svc := NewService(newFakeUserRepo())
	ctx := context.Background()
	id := createTestUser(t, svc, "gone@example.com")

	require.NoError(t, svc.DeleteMe(ctx, id))

	_, err := svc.LoadIdentity(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGetMeExcludesSoftDeleted(t *testing.T) {
	svc := NewService(newFakeUserRepo())
	ctx := context.Background()
	id := createTestUser(t, svc, "gone@example.com")

	require.NoError(t, svc.DeleteMe(ctx, id))

	_, err := svc.GetMe(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListUsersInactiveOverride(t *testing.T) {
	svc := NewService(newFakeUserRepo())
	ctx := context.Background()
	createTestUser(t, svc, "alive@example.com")
	deleted := createTestUser(t, svc, "gone@example.com")

	require.NoError(t, svc.DeleteMe(ctx, deleted))

	users, total, err := svc.ListUsers(ctx, ListUsersParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, users, 1)

	users, total, err = svc.ListUsers(ctx, ListUsersParams{
		IncludeInactive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, users, 2)
}

func TestCreateRejectsAdminRole(t *testing.T) {
	svc := NewService(newFakeUserRepo())

	_, err := svc.Create(
		context.Background(),
		"Sneaky User",
		"sneaky@example.com",
		"$argon2id$fake-hash",
		RoleAdmin,
	)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
