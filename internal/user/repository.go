// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/angelamos/tourways/internal/core"
)

const userColumns = `id, name, email, password_hash, role,
       password_changed_at, password_reset_token_hash,
       password_reset_expires_at, active, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(
		ctx context.Context,
		id string,
		includeInactive bool,
	) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, user *User) error
	UpdatePassword(
		ctx context.Context,
		id, passwordHash string,
		changedAt time.Time,
	) error
	SetPasswordReset(
		ctx context.Context,
		id, tokenHash string,
		expiresAt time.Time,
	) error
	ClearPasswordReset(ctx context.Context, id, tokenHash string) error
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*User, error)
	CompleteReset(
		ctx context.Context,
		id, tokenHash, newPasswordHash string,
		changedAt time.Time,
	) (bool, error)
	UpdateRole(ctx context.Context, id, role string) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING active, created_at, updated_at`

	err := r.db.GetContext(ctx, user, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByID filters to active rows by default; an admin inspecting a
// soft-deleted account passes includeInactive.
func (r *repository) GetByID(
	ctx context.Context,
	id string,
	includeInactive bool,
) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE id = $1`, userColumns)
	if !includeInactive {
		query += " AND active = true"
	}

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE email = $1 AND active = true`, userColumns)

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

func (r *repository) UpdateProfile(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, updated_at = NOW()
		WHERE id = $1 AND active = true
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &user.UpdatedAt, query,
		user.ID,
		user.Name,
		user.Email,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("update user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

// UpdatePassword records the new hash together with the change
// timestamp that invalidates earlier tokens.
func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
	changedAt time.Time,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, password_changed_at = $3, updated_at = NOW()
		WHERE id = $1 AND active = true`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash, changedAt)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}

	return nil
}

// SetPasswordReset stores the token digest and its expiry, replacing
// any previously issued token so only the latest one can be redeemed.
func (r *repository) SetPasswordReset(
	ctx context.Context,
	id, tokenHash string,
	expiresAt time.Time,
) error {
	query := `
		UPDATE users
		SET password_reset_token_hash = $2,
		    password_reset_expires_at = $3,
		    updated_at = NOW()
		WHERE id = $1 AND active = true`

	result, err := r.db.ExecContext(ctx, query, id, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("set password reset: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set password reset: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("set password reset: %w", core.ErrNotFound)
	}

	return nil
}

// ClearPasswordReset wipes the reset fields only while they still hold
// the given digest. A token issued after the caller's read survives; a
// concurrent request cannot have its fresh token wiped by the cleanup
// of an older one.
func (r *repository) ClearPasswordReset(
	ctx context.Context,
	id, tokenHash string,
) error {
	query := `
		UPDATE users
		SET password_reset_token_hash = NULL,
		    password_reset_expires_at = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND password_reset_token_hash = $2`

	if _, err := r.db.ExecContext(ctx, query, id, tokenHash); err != nil {
		return fmt.Errorf("clear password reset: %w", err)
	}

	return nil
}

func (r *repository) GetByResetTokenHash(
	ctx context.Context,
	tokenHash string,
) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE password_reset_token_hash = $1 AND active = true`, userColumns)

	var user User
	err := r.db.GetContext(ctx, &user, query, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by reset token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by reset token: %w", err)
	}

	return &user, nil
}

// CompleteReset consumes the reset token and installs the new password
// in one conditional update. The WHERE clause re-checks the stored
// digest so two racing redemptions can never both succeed; the loser
// sees zero rows and reports false.
func (r *repository) CompleteReset(
	ctx context.Context,
	id, tokenHash, newPasswordHash string,
	changedAt time.Time,
) (bool, error) {
	query := `
		UPDATE users
		SET password_hash = $3,
		    password_changed_at = $4,
		    password_reset_token_hash = NULL,
		    password_reset_expires_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
		  AND password_reset_token_hash = $2
		  AND active = true`

	result, err := r.db.ExecContext(
		ctx,
		query,
		id,
		tokenHash,
		newPasswordHash,
		changedAt,
	)
	if err != nil {
		return false, fmt.Errorf("complete password reset: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete password reset: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) UpdateRole(ctx context.Context, id, role string) error {
	query := `
		UPDATE users
		SET role = $2, updated_at = NOW()
		WHERE id = $1 AND active = true`

	result, err := r.db.ExecContext(ctx, query, id, role)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update role: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET active = false, updated_at = NOW()
		WHERE id = $1 AND active = true`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	if !params.IncludeInactive {
		conditions = append(conditions, "active = true")
	} else {
		conditions = append(conditions, "TRUE")
	}

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(email ILIKE $%d OR name ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	if params.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, params.Role)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM users WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		userColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

func (r *repository) ExistsByEmail(
	ctx context.Context,
	email string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND active = true)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}

	return exists, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
