// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID                     string     `db:"id"`
	Name                   string     `db:"name"`
	Email                  string     `db:"email"`
	PasswordHash           string     `db:"password_hash"`
	Role                   string     `db:"role"`
	PasswordChangedAt      *time.Time `db:"password_changed_at"`
	PasswordResetTokenHash *string    `db:"password_reset_token_hash"`
	PasswordResetExpiresAt *time.Time `db:"password_reset_expires_at"`
	Active                 bool       `db:"active"`
	CreatedAt              time.Time  `db:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasPendingReset reports whether an unconsumed reset token exists,
// regardless of its expiry.
func (u *User) HasPendingReset() bool {
	return u.PasswordResetTokenHash != nil
}

const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}
