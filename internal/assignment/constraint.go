package assignment

import (
	"errors"
	"fmt"

	"github.com/spec-kit/staff-assignment/internal/domain"
)

// ErrInvalidConstraint is returned when a constraint is malformed.
var ErrInvalidConstraint = errors.New("invalid assignment constraint")

// ConstraintError names the offending field of a malformed constraint.
type ConstraintError struct {
	Field  string
	Reason string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConstraint, e.Field, e.Reason)
}

// Is lets errors.Is match ErrInvalidConstraint.
func (e *ConstraintError) Is(target error) bool {
	return target == ErrInvalidConstraint
}

// Constraint is what a booking needs from a staff member. Role is required,
// everything else is optional and ignored when empty.
type Constraint struct {
	Role           domain.StaffRole
	BranchID       string
	Window         *domain.TimeWindow
	RequiredSkills []string
	// PreferredStaffIDs only affects ranking, never eligibility.
	PreferredStaffIDs []string
}

// Validate reports the first malformed field.
func (c Constraint) Validate() error {
	if c.Role == "" {
		return &ConstraintError{Field: "role", Reason: "is required"}
	}
	if c.Window != nil && !c.Window.Valid() {
		return &ConstraintError{Field: "window", Reason: "must end after it starts"}
	}
	return nil
}

// ConstraintForBooking derives the constraint a booking imposes.
func ConstraintForBooking(b *domain.Booking) Constraint {
	window := b.Window()
	return Constraint{
		Role:           b.ServiceRole,
		BranchID:       b.BranchID,
		Window:         &window,
		RequiredSkills: b.RequiredSkills,
	}
}
