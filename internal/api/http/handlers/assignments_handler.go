package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-assignment/internal/service"
)

// AssignmentsHandler lets staff see and close out their own assignments.
type AssignmentsHandler struct {
	bookings *service.BookingService
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(bookingService *service.BookingService) *AssignmentsHandler {
	return &AssignmentsHandler{bookings: bookingService}
}

// ListMine GET /me/assignments.
func (h *AssignmentsHandler) ListMine(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	filter, err := parseBookingListFilter(c)
	if err != nil {
		return err
	}
	bookings, err := h.bookings.ListStaffAssignments(c.UserContext(), staff, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bookingResponses(bookings)})
}

// Complete POST /me/assignments/:id/complete.
func (h *AssignmentsHandler) Complete(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	booking, err := h.bookings.CompleteAssignment(c.UserContext(), staff, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bookingResponse(booking)})
}
