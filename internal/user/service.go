// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelamos/tourways/internal/auth"
	"github.com/angelamos/tourways/internal/core"
	"github.com/angelamos/tourways/internal/middleware"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) Create(
	ctx context.Context,
	name, email, passwordHash, role string,
) (*auth.UserInfo, error) {
	if role == "" {
		role = RoleUser
	}

	// Admin accounts are never created through signup.
	if role == RoleAdmin || !ValidRole(role) {
		return nil, fmt.Errorf(
			"create user: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	user := &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		Role:         role,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
	changedAt time.Time,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash, changedAt)
}

func (s *Service) SetPasswordReset(
	ctx context.Context,
	userID, tokenHash string,
	expiresAt time.Time,
) error {
	return s.repo.SetPasswordReset(ctx, userID, tokenHash, expiresAt)
}

func (s *Service) ClearPasswordReset(
	ctx context.Context,
	userID, tokenHash string,
) error {
	return s.repo.ClearPasswordReset(ctx, userID, tokenHash)
}

func (s *Service) GetByResetTokenHash(
	ctx context.Context,
	tokenHash string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByResetTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) CompleteReset(
	ctx context.Context,
	userID, tokenHash, newPasswordHash string,
	changedAt time.Time,
) (bool, error) {
	return s.repo.CompleteReset(
		ctx,
		userID,
		tokenHash,
		newPasswordHash,
		changedAt,
	)
}

// LoadIdentity resolves a token subject for the access guard. The
// repository's active-only filter guarantees soft-deleted accounts
// come back as not found.
func (s *Service) LoadIdentity(
	ctx context.Context,
	userID string,
) (*middleware.Identity, error) {
	user, err := s.repo.GetByID(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	return &middleware.Identity{
		ID:                user.ID,
		Email:             user.Email,
		Role:              user.Role,
		PasswordChangedAt: user.PasswordChangedAt,
	}, nil
}

// GetUser serves the admin surface, so soft-deleted accounts stay
// inspectable.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id, true)
}

func (s *Service) UpdateUser(
	ctx context.Context,
	id string,
	req UpdateUserRequest,
) (*User, error) {
	user, err := s.repo.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = strings.ToLower(*req.Email)
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) UpdateUserRole(
	ctx context.Context,
	id, role string,
) (*User, error) {
	if !ValidRole(role) {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id, false)
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) GetMe(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID, false)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID string,
	req UpdateUserRequest,
) (*User, error) {
	if userID == "" {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	return s.UpdateUser(ctx, userID, req)
}

// DeleteMe deactivates the account. The row survives so reviews keep
// their author and the email stays claimed.
func (s *Service) DeleteMe(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("delete me: %w", core.ErrUnauthorized)
	}

	return s.repo.SoftDelete(ctx, userID)
}

func (s *Service) EmailExists(
	ctx context.Context,
	email string,
) (bool, error) {
	return s.repo.ExistsByEmail(ctx, strings.ToLower(email))
}

func (s *Service) CanDeleteUser(
	ctx context.Context,
	requesterID, targetID string,
) error {
	if requesterID == targetID {
		return nil
	}

	requester, err := s.repo.GetByID(ctx, requesterID, false)
	if err != nil {
		return err
	}

	if !requester.IsAdmin() {
		return fmt.Errorf("delete user: %w", core.ErrForbidden)
	}

	target, err := s.repo.GetByID(ctx, targetID, false)
	if err != nil {
		return err
	}

	if target.IsAdmin() {
		return fmt.Errorf("cannot delete admin users: %w", core.ErrForbidden)
	}

	return nil
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:                     u.ID,
		Name:                   u.Name,
		Email:                  u.Email,
		PasswordHash:           u.PasswordHash,
		Role:                   u.Role,
		PasswordChangedAt:      u.PasswordChangedAt,
		PasswordResetExpiresAt: u.PasswordResetExpiresAt,
	}
}

var (
	_ auth.UserProvider         = (*Service)(nil)
	_ middleware.IdentityLoader = (*Service)(nil)
)
