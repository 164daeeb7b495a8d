package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-assignment/internal/api/dto"
	"github.com/spec-kit/staff-assignment/internal/assignment"
	"github.com/spec-kit/staff-assignment/internal/domain"
	"github.com/spec-kit/staff-assignment/internal/service"
	"github.com/spec-kit/staff-assignment/internal/validation"
)

// DispatchHandler exposes eligibility queries and assignment actions to
// managers and admins.
type DispatchHandler struct {
	assignments *service.AssignmentService
	validator   *validation.Validator
}

// NewDispatchHandler constructs handler.
func NewDispatchHandler(assignments *service.AssignmentService, v *validation.Validator) *DispatchHandler {
	return &DispatchHandler{assignments: assignments, validator: v}
}

// EligibleStaff handles POST /dispatch/eligible-staff.
func (h *DispatchHandler) EligibleStaff(c *fiber.Ctx) error {
	var req dto.EligibleStaffRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	constraint := assignment.Constraint{
		Role:              req.Role,
		BranchID:          req.BranchID,
		RequiredSkills:    req.RequiredSkills,
		PreferredStaffIDs: req.PreferredStaffIDs,
	}
	if req.StartsAt != nil && req.EndsAt != nil {
		constraint.Window = &domain.TimeWindow{Start: *req.StartsAt, End: *req.EndsAt}
	}
	ranked, err := h.assignments.FindEligibleStaff(c.UserContext(), constraint)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": rankedResponses(ranked),
		"meta": fiber.Map{"ranking": h.assignments.Policy().String()},
	})
}

// Candidates handles GET /dispatch/bookings/:id/candidates.
func (h *DispatchHandler) Candidates(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	booking, ranked, err := h.assignments.CandidatesForBooking(c.UserContext(), actor, c.Params("id"), splitQuery(c, "preferred"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"booking":    bookingResponse(booking),
		"candidates": rankedResponses(ranked),
	}})
}

// Assign handles POST /dispatch/bookings/:id/assign.
func (h *DispatchHandler) Assign(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	booking, err := h.assignments.AssignBookingToStaff(c.UserContext(), actor, c.Params("id"), req.StaffID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AssignmentResponse{Booking: bookingResponse(booking)}})
}

// AutoAssign handles POST /dispatch/bookings/:id/auto-assign.
func (h *DispatchHandler) AutoAssign(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AutoAssignRequest
	if err := bindOptional(c, h.validator, &req); err != nil {
		return err
	}
	booking, top, err := h.assignments.AutoAssignBooking(c.UserContext(), actor, c.Params("id"), req.PreferredStaffIDs)
	if err != nil {
		return err
	}
	assignee := rankedResponse(*top)
	return c.JSON(fiber.Map{"data": dto.AssignmentResponse{Booking: bookingResponse(booking), Assignee: &assignee}})
}

// Unassign handles POST /dispatch/bookings/:id/unassign.
func (h *DispatchHandler) Unassign(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UnassignRequest
	if err := bindOptional(c, h.validator, &req); err != nil {
		return err
	}
	booking, err := h.assignments.UnassignBooking(c.UserContext(), actor, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AssignmentResponse{Booking: bookingResponse(booking)}})
}

// History handles GET /dispatch/bookings/:id/history.
func (h *DispatchHandler) History(c *fiber.Ctx) error {
	actor, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	history, err := h.assignments.History(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.BookingHistoryResponse, 0, len(history))
	for _, entry := range history {
		items = append(items, dto.BookingHistoryResponse{
			ID:            entry.ID,
			ChangedByType: entry.ChangedByType,
			ChangedByID:   entry.ChangedByID,
			ChangeType:    entry.ChangeType,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func rankedResponse(r assignment.Ranked) dto.RankedStaffResponse {
	return dto.RankedStaffResponse{
		Rank:               r.Rank,
		Score:              r.Score,
		StaffID:            r.Staff.ID,
		Name:               r.Staff.Name,
		Role:               r.Staff.Role,
		BranchIDs:          nonNilStrings(r.Staff.BranchIDs),
		Skills:             nonNilStrings(r.Staff.Skills),
		CurrentAssignments: r.Staff.CurrentAssignments,
	}
}

func rankedResponses(ranked []assignment.Ranked) []dto.RankedStaffResponse {
	items := make([]dto.RankedStaffResponse, 0, len(ranked))
	for _, r := range ranked {
		items = append(items, rankedResponse(r))
	}
	return items
}
