package dto

import "time"

// ProvisionUserRequest mirrors an identity-provider account.
type ProvisionUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// UpdateUserRequest refreshes a mirrored account.
type UpdateUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// UserResponse represents a mirrored account.
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
