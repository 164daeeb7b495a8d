package dto

import (
	"time"

	"github.com/spec-kit/staff-assignment/internal/domain"
)

// UserRegisterRequest payload for new booking accounts.
type UserRegisterRequest struct {
	Name        string             `json:"name" validate:"required,max=200"`
	Email       string             `json:"email" validate:"required,email"`
	Password    string             `json:"password" validate:"required,min=8,max=72"`
	AccountType domain.AccountType `json:"account_type" validate:"omitempty,oneof=CUSTOMER HOTEL"`
	BranchID    *string            `json:"branch_id" validate:"omitempty,uuid"`
}

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	AccountType domain.AccountType `json:"account_type"`
	BranchID    *string            `json:"branch_id,omitempty"`
	Status      domain.UserStatus  `json:"status"`
}
