package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-assignment/internal/api/dto"
	"github.com/spec-kit/staff-assignment/internal/domain"
	"github.com/spec-kit/staff-assignment/internal/service"
	"github.com/spec-kit/staff-assignment/internal/validation"
)

// BookingsHandler manages account booking endpoints.
type BookingsHandler struct {
	service   *service.BookingService
	validator *validation.Validator
}

// NewBookingsHandler constructs handler.
func NewBookingsHandler(bookingService *service.BookingService, v *validation.Validator) *BookingsHandler {
	return &BookingsHandler{service: bookingService, validator: v}
}

// CreateBooking POST /bookings.
func (h *BookingsHandler) CreateBooking(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateBookingRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}

	booking, err := h.service.CreateBooking(c.UserContext(), user, service.BookingCreateInput{
		BranchID:       req.BranchID,
		ServiceRole:    req.ServiceRole,
		RequiredSkills: req.RequiredSkills,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		GuestName:      req.GuestName,
		Notes:          req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": bookingResponse(booking)})
}

// ListBookings GET /bookings.
func (h *BookingsHandler) ListBookings(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	filter, err := parseBookingListFilter(c)
	if err != nil {
		return err
	}
	bookings, err := h.service.ListUserBookings(c.UserContext(), user.ID, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bookingResponses(bookings)})
}

// GetBooking GET /bookings/:id.
func (h *BookingsHandler) GetBooking(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	booking, err := h.service.GetBookingForUser(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bookingResponse(booking)})
}

// CancelBooking POST /bookings/:id/cancel.
func (h *BookingsHandler) CancelBooking(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CancelBookingRequest
	if err := bindOptional(c, h.validator, &req); err != nil {
		return err
	}
	booking, err := h.service.CancelBooking(c.UserContext(), user.ID, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bookingResponse(booking)})
}

func parseBookingListFilter(c *fiber.Ctx) (service.BookingListFilter, error) {
	filter := service.BookingListFilter{Statuses: parseStatuses(c)}
	var err error
	if filter.From, err = parseTimeQuery(c, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = parseTimeQuery(c, "to"); err != nil {
		return filter, err
	}
	filter.Limit, filter.Offset = parsePage(c, 20)
	return filter, nil
}

func bookingResponse(b *domain.Booking) dto.BookingResponse {
	return dto.BookingResponse{
		ID:             b.ID,
		ExternalKey:    b.ExternalKey,
		RequesterID:    b.RequesterID,
		BranchID:       b.BranchID,
		ServiceRole:    b.ServiceRole,
		RequiredSkills: nonNilStrings(b.RequiredSkills),
		StartsAt:       b.StartsAt,
		EndsAt:         b.EndsAt,
		GuestName:      b.GuestName,
		Notes:          b.Notes,
		AssigneeID:     b.AssigneeID,
		Status:         b.Status,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
		CancelledAt:    b.CancelledAt,
	}
}

func bookingResponses(bookings []domain.Booking) []dto.BookingResponse {
	items := make([]dto.BookingResponse, 0, len(bookings))
	for i := range bookings {
		items = append(items, bookingResponse(&bookings[i]))
	}
	return items
}
