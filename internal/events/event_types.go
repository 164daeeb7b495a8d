package events

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/staff-assignment/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventBookingCreated         EventType = "booking_created"
	EventStaffAssigned          EventType = "staff_assigned"
	EventStaffUnassigned        EventType = "staff_unassigned"
	EventBookingCancelled       EventType = "booking_cancelled"
	EventPasswordResetRequested EventType = "password_reset_requested"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	UserID  *string            `json:"user_id,omitempty"`
	StaffID *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	BookingID string    `json:"booking_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Envelope is the wire form of an Event with the payload left undecoded.
type Envelope struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	BookingID string          `json:"booking_id,omitempty"`
	Actor     Actor           `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// BookingCreatedPayload payload.
type BookingCreatedPayload struct {
	BranchID    string           `json:"branch_id"`
	ServiceRole domain.StaffRole `json:"service_role"`
	StartsAt    time.Time        `json:"starts_at"`
	EndsAt      time.Time        `json:"ends_at"`
}

// StaffAssignedPayload payload.
type StaffAssignedPayload struct {
	StaffID         string    `json:"staff_id"`
	StaffName       string    `json:"staff_name"`
	StaffEmail      string    `json:"staff_email"`
	PreviousStaffID *string   `json:"previous_staff_id,omitempty"`
	BranchID        string    `json:"branch_id"`
	GuestName       string    `json:"guest_name,omitempty"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	Auto            bool      `json:"auto"`
}

// StaffUnassignedPayload payload.
type StaffUnassignedPayload struct {
	StaffID string `json:"staff_id"`
	Reason  string `json:"reason,omitempty"`
}

// BookingCancelledPayload payload.
type BookingCancelledPayload struct {
	Reason        string    `json:"reason,omitempty"`
	AssigneeID    *string   `json:"assignee_id,omitempty"`
	AssigneeEmail string    `json:"assignee_email,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
}

// PasswordResetRequestedPayload payload.
type PasswordResetRequestedPayload struct {
	Email     string    `json:"email"`
	ResetURL  string    `json:"reset_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
