package dto

import (
	"time"

	"github.com/spec-kit/ops-portal/internal/domain"
)

// RegisterRequest payload.
type RegisterRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"full_name"`
	Role     domain.Role `json:"role"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// SessionResponse carries an issued token and identity summary.
type SessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   ProfileResponse `json:"profile"`
}

// ProfileResponse summarizes a portal profile.
type ProfileResponse struct {
	UserID   string      `json:"user_id"`
	FullName string      `json:"full_name"`
	Role     domain.Role `json:"role"`
}

// UserResponse is one directory entry.
type UserResponse struct {
	UserID    string      `json:"user_id"`
	FullName  string      `json:"full_name"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// SetUserRoleRequest payload.
type SetUserRoleRequest struct {
	Role domain.Role `json:"role"`
}

// MeResponse describes the caller's session, including any view-as state.
type MeResponse struct {
	UserID        string          `json:"user_id"`
	Role          domain.Role     `json:"role"`
	Impersonating bool            `json:"impersonating"`
	ViewAs        *ViewAsResponse `json:"view_as,omitempty"`
}

// ViewAsResponse details the impersonated identity.
type ViewAsResponse struct {
	Role   domain.Role `json:"role"`
	UserID string      `json:"user_id,omitempty"`
}
