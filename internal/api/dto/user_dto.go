package dto

import (
	"time"

	"github.com/civicworks/issue-service/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse returns the signed token with the user.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	District  *string     `json:"district,omitempty"`
	IsPremium bool        `json:"is_premium"`
	IsBlocked bool        `json:"is_blocked"`
	CreatedAt time.Time   `json:"created_at"`
}

// UpdateProfileRequest payload.
type UpdateProfileRequest struct {
	Name string `json:"name"`
}

// UpdateRoleRequest payload (admin).
type UpdateRoleRequest struct {
	Role     domain.Role `json:"role"`
	District *string     `json:"district,omitempty"`
}

// SetBlockedRequest payload (admin).
type SetBlockedRequest struct {
	Blocked bool `json:"blocked"`
}

// PasswordResetRequest payload.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}
