package dto

import (
	"time"

	"github.com/spec-kit/staff-assignment/internal/domain"
)

// CreateBookingRequest payload.
type CreateBookingRequest struct {
	BranchID       string           `json:"branch_id" validate:"omitempty,uuid"`
	ServiceRole    domain.StaffRole `json:"service_role" validate:"required,oneof=THERAPIST DRIVER"`
	RequiredSkills []string         `json:"required_skills" validate:"omitempty,max=20,dive,skill_tag"`
	StartsAt       time.Time        `json:"starts_at" validate:"required"`
	EndsAt         time.Time        `json:"ends_at" validate:"required,gtfield=StartsAt"`
	GuestName      string           `json:"guest_name" validate:"max=200"`
	Notes          string           `json:"notes" validate:"max=2000"`
}

// CancelBookingRequest payload.
type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// BookingResponse view.
type BookingResponse struct {
	ID             string               `json:"id"`
	ExternalKey    string               `json:"external_key"`
	RequesterID    string               `json:"requester_id"`
	BranchID       string               `json:"branch_id"`
	ServiceRole    domain.StaffRole     `json:"service_role"`
	RequiredSkills []string             `json:"required_skills"`
	StartsAt       time.Time            `json:"starts_at"`
	EndsAt         time.Time            `json:"ends_at"`
	GuestName      string               `json:"guest_name,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	AssigneeID     *string              `json:"assignee_staff_id"`
	Status         domain.BookingStatus `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	CancelledAt    *time.Time           `json:"cancelled_at,omitempty"`
}

// BookingHistoryResponse is one audit entry.
type BookingHistoryResponse struct {
	ID            string                   `json:"id"`
	ChangedByType domain.SubjectType       `json:"changed_by_type"`
	ChangedByID   *string                  `json:"changed_by_id"`
	ChangeType    domain.BookingChangeType `json:"change_type"`
	OldValue      map[string]any           `json:"old_value"`
	NewValue      map[string]any           `json:"new_value"`
	CreatedAt     time.Time                `json:"created_at"`
}

// EligibleStaffRequest is an ad-hoc eligibility query. Window bounds are
// optional but must be given together.
type EligibleStaffRequest struct {
	Role              domain.StaffRole `json:"role" validate:"required,staff_role"`
	BranchID          string           `json:"branch_id" validate:"omitempty,uuid"`
	StartsAt          *time.Time       `json:"starts_at" validate:"required_with=EndsAt"`
	EndsAt            *time.Time       `json:"ends_at" validate:"required_with=StartsAt"`
	RequiredSkills    []string         `json:"required_skills" validate:"omitempty,dive,skill_tag"`
	PreferredStaffIDs []string         `json:"preferred_staff_ids"`
}

// AssignRequest picks a staff member explicitly.
type AssignRequest struct {
	StaffID string `json:"staff_id" validate:"required"`
}

// AutoAssignRequest optionally names staff to rank first.
type AutoAssignRequest struct {
	PreferredStaffIDs []string `json:"preferred_staff_ids"`
}

// UnassignRequest payload.
type UnassignRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// RankedStaffResponse is one entry of an eligibility result.
type RankedStaffResponse struct {
	Rank               int              `json:"rank"`
	Score              float64          `json:"score"`
	StaffID            string           `json:"staff_id"`
	Name               string           `json:"name"`
	Role               domain.StaffRole `json:"role"`
	BranchIDs          []string         `json:"branch_ids"`
	Skills             []string         `json:"skills"`
	CurrentAssignments int              `json:"current_assignments"`
}

// AssignmentResponse reports the booking and who took it.
type AssignmentResponse struct {
	Booking  BookingResponse      `json:"booking"`
	Assignee *RankedStaffResponse `json:"assignee,omitempty"`
}
