// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type SignupRequest struct {
	Name            string `json:"name"             validate:"required,min=1,max=100"`
	Email           string `json:"email"            validate:"required,email,max=255"`
	Password        string `json:"password"         validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role,omitempty"   validate:"omitempty,oneof=user guide lead-guide"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"         validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password"     validate:"required"`
	NewPassword        string `json:"new_password"         validate:"required,min=8,max=128"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required,eqfield=NewPassword"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type AuthResponse struct {
	User   UserResponse  `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
