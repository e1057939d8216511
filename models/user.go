package models

import "time"

// ============================================================================
// USER MODEL
// ============================================================================

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Groups       []string  `json:"groups"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	IsActive     bool      `json:"is_active"`
	DateJoined   time.Time `json:"date_joined"`
}

// ============================================================================
// PROFILE REQUESTS
// ============================================================================

// UpdateProfileRequest is a partial update of the caller's own record.
type UpdateProfileRequest struct {
	Email     *string `json:"email" validate:"omitempty,nonul,email,max=254"`
	FirstName *string `json:"first_name" validate:"omitempty,nonul,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,nonul,max=150"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}
