package dto

import (
	"time"

	"github.com/spec-kit/staff-assignment/internal/domain"
	"github.com/spec-kit/staff-assignment/internal/service"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordResetRequest payload for initiating reset.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest payload for confirming reset.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// BranchRequest creates or updates a branch. On update empty fields are kept.
type BranchRequest struct {
	Name     string `json:"name" validate:"omitempty,max=200"`
	Address  string `json:"address" validate:"omitempty,max=500"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
	IsActive *bool  `json:"is_active"`
}

// BranchResponse view.
type BranchResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Timezone  string    `json:"timezone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// StaffCreateRequest payload.
type StaffCreateRequest struct {
	Name      string           `json:"name" validate:"required,max=200"`
	Email     string           `json:"email" validate:"required,email"`
	Password  string           `json:"password" validate:"required,min=8,max=72"`
	Role      domain.StaffRole `json:"role" validate:"required,staff_role"`
	BranchIDs []string         `json:"branch_ids" validate:"omitempty,dive,uuid"`
	Skills    []string         `json:"skills" validate:"omitempty,dive,skill_tag"`
}

// StaffUpdateRequest payload; omitted fields stay unchanged.
type StaffUpdateRequest struct {
	Name      *string           `json:"name" validate:"omitempty,min=1,max=200"`
	Email     *string           `json:"email" validate:"omitempty,email"`
	Role      *domain.StaffRole `json:"role" validate:"omitempty,staff_role"`
	BranchIDs []string          `json:"branch_ids" validate:"omitempty,dive,uuid"`
	Skills    []string          `json:"skills" validate:"omitempty,dive,skill_tag"`
	Active    *bool             `json:"active"`
}

// SkillsRequest replaces a staff member's skill tags.
type SkillsRequest struct {
	Skills []string `json:"skills" validate:"dive,skill_tag"`
}

// StaffImportRequest wraps a bulk import. Rows are validated one by one so a
// bad row does not reject the batch.
type StaffImportRequest struct {
	Staff []service.StaffImportRecord `json:"staff" validate:"required,min=1,max=500"`
}

// AvailabilityRequest uses the same shape as an imported availability row.
type AvailabilityRequest = service.AvailabilityRecord

// StaffResponse view.
type StaffResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Email        string                `json:"email"`
	Role         domain.StaffRole      `json:"role"`
	BranchIDs    []string              `json:"branch_ids"`
	Skills       []string              `json:"skills"`
	Active       bool                  `json:"active"`
	Availability []domain.Availability `json:"availability,omitempty"`
}
