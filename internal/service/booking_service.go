package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/staff-assignment/internal/domain"
	"github.com/spec-kit/staff-assignment/internal/events"
	"github.com/spec-kit/staff-assignment/internal/repository"
	apperrors "github.com/spec-kit/staff-assignment/pkg/util/errorutil"
)

// bookableRoles are the roles a customer can book directly.
var bookableRoles = map[domain.StaffRole]struct{}{
	domain.StaffRoleTherapist: {},
	domain.StaffRoleDriver:    {},
}

// BookingService coordinates booking workflows for accounts and staff.
type BookingService struct {
	bookings   repository.BookingRepository
	branches   repository.BranchRepository
	staff      repository.StaffRepository
	history    repository.BookingHistoryRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// BookingDependencies bundles repositories for booking service.
type BookingDependencies struct {
	BookingRepo repository.BookingRepository
	BranchRepo  repository.BranchRepository
	StaffRepo   repository.StaffRepository
	HistoryRepo repository.BookingHistoryRepository
	Dispatcher  events.Dispatcher
}

// BookingCreateInput describes booking creation payload.
type BookingCreateInput struct {
	BranchID       string
	ServiceRole    domain.StaffRole
	RequiredSkills []string
	StartsAt       time.Time
	EndsAt         time.Time
	GuestName      string
	Notes          string
}

// BookingListFilter describes listing filters.
type BookingListFilter struct {
	Statuses []domain.BookingStatus
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// NewBookingService constructs the service.
func NewBookingService(deps BookingDependencies) *BookingService {
	return &BookingService{
		bookings:   deps.BookingRepo,
		branches:   deps.BranchRepo,
		staff:      deps.StaffRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		now:        time.Now,
	}
}

// CreateBooking places a pending booking for user. Hotel accounts attached to
// a branch always book at that branch.
func (s *BookingService) CreateBooking(ctx context.Context, user *domain.User, input BookingCreateInput) (*domain.Booking, error) {
	if user == nil {
		return nil, apperrors.NewUnauthorized("account required")
	}
	branchID := strings.TrimSpace(input.BranchID)
	if user.AccountType == domain.AccountTypeHotel && user.BranchID != nil {
		if branchID != "" && branchID != *user.BranchID {
			return nil, apperrors.NewForbidden("hotel accounts book at their own branch")
		}
		branchID = *user.BranchID
	}
	if branchID == "" {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"branch_id": "is required"})
	}
	if _, ok := bookableRoles[input.ServiceRole]; !ok {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"service_role": "must be THERAPIST or DRIVER"})
	}
	if !input.EndsAt.After(input.StartsAt) {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"ends_at": "must be after starts_at"})
	}
	if !input.StartsAt.After(s.now()) {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"starts_at": "must be in the future"})
	}

	branch, err := s.branches.GetByID(ctx, branchID)
	if err != nil {
		return nil, notFound(err, "branch", map[string]any{"branch_id": branchID})
	}
	if !branch.IsActive {
		return nil, apperrors.NewConflict("branch inactive", map[string]any{"branch_id": branchID})
	}

	booking := &domain.Booking{
		ExternalKey:    generateBookingKey(),
		RequesterID:    user.ID,
		BranchID:       branch.ID,
		ServiceRole:    input.ServiceRole,
		RequiredSkills: normalizeTags(input.RequiredSkills),
		StartsAt:       input.StartsAt.UTC(),
		EndsAt:         input.EndsAt.UTC(),
		GuestName:      strings.TrimSpace(input.GuestName),
		Notes:          strings.TrimSpace(input.Notes),
		Status:         domain.BookingStatusPending,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventBookingCreated,
		BookingID: booking.ID,
		Actor:     userActor(user.ID),
		Payload: events.BookingCreatedPayload{
			BranchID:    booking.BranchID,
			ServiceRole: booking.ServiceRole,
			StartsAt:    booking.StartsAt,
			EndsAt:      booking.EndsAt,
		},
	})
	return booking, nil
}

// ListUserBookings returns paginated bookings for a requester.
func (s *BookingService) ListUserBookings(ctx context.Context, userID string, filter BookingListFilter) ([]domain.Booking, error) {
	bookings, err := s.bookings.List(ctx, repository.BookingFilter{
		RequesterID: &userID,
		Statuses:    filter.Statuses,
		StartsFrom:  filter.From,
		StartsTo:    filter.To,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return bookings, nil
}

// GetBookingForUser fetches a booking ensuring ownership.
func (s *BookingService) GetBookingForUser(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, notFound(err, "booking", map[string]any{"booking_id": bookingID})
	}
	if booking.RequesterID != userID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return booking, nil
}

// CancelBooking cancels a pending or assigned booking owned by userID.
func (s *BookingService) CancelBooking(ctx context.Context, userID, bookingID, reason string) (*domain.Booking, error) {
	booking, err := s.GetBookingForUser(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(booking.Status, domain.BookingStatusCancelled) {
		return nil, apperrors.NewConflict("booking cannot be cancelled", map[string]any{"status": booking.Status})
	}

	oldStatus := booking.Status
	expected := repository.VersionOf(booking)
	now := s.now().UTC()
	booking.Status = domain.BookingStatusCancelled
	booking.CancelledAt = &now
	if err := s.bookings.Update(ctx, booking, expected); err != nil {
		return nil, bookingWriteError(err, booking)
	}
	if err := s.recordStatusChange(ctx, domain.SubjectTypeUser, &userID, booking.ID, oldStatus, booking.Status, reason); err != nil {
		return nil, apperrors.MapError(err)
	}

	payload := events.BookingCancelledPayload{
		Reason:     strings.TrimSpace(reason),
		AssigneeID: booking.AssigneeID,
		StartsAt:   booking.StartsAt,
	}
	if booking.AssigneeID != nil {
		if assignee, err := s.staff.GetByID(ctx, *booking.AssigneeID); err == nil {
			payload.AssigneeEmail = assignee.Email
		}
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventBookingCancelled,
		BookingID: booking.ID,
		Actor:     userActor(userID),
		Payload:   payload,
	})
	return booking, nil
}

// ListStaffAssignments returns bookings assigned to staff.
func (s *BookingService) ListStaffAssignments(ctx context.Context, staff *domain.StaffMember, filter BookingListFilter) ([]domain.Booking, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	bookings, err := s.bookings.List(ctx, repository.BookingFilter{
		AssigneeID: &staff.ID,
		Statuses:   filter.Statuses,
		StartsFrom: filter.From,
		StartsTo:   filter.To,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return bookings, nil
}

// CompleteAssignment lets the assignee mark an assigned booking as delivered.
func (s *BookingService) CompleteAssignment(ctx context.Context, staff *domain.StaffMember, bookingID string) (*domain.Booking, error) {
	if staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, notFound(err, "booking", map[string]any{"booking_id": bookingID})
	}
	if booking.AssigneeID == nil || *booking.AssigneeID != staff.ID {
		return nil, apperrors.NewForbidden("booking not assigned to caller")
	}
	if !isValidTransition(booking.Status, domain.BookingStatusCompleted) {
		return nil, apperrors.NewConflict("booking cannot be completed", map[string]any{"status": booking.Status})
	}
	oldStatus := booking.Status
	expected := repository.VersionOf(booking)
	booking.Status = domain.BookingStatusCompleted
	if err := s.bookings.Update(ctx, booking, expected); err != nil {
		return nil, bookingWriteError(err, booking)
	}
	if err := s.recordStatusChange(ctx, domain.SubjectTypeStaff, &staff.ID, booking.ID, oldStatus, booking.Status, ""); err != nil {
		return nil, apperrors.MapError(err)
	}
	return booking, nil
}

func isValidTransition(current, next domain.BookingStatus) bool {
	switch current {
	case domain.BookingStatusPending:
		return next == domain.BookingStatusAssigned || next == domain.BookingStatusCancelled
	case domain.BookingStatusAssigned:
		return next == domain.BookingStatusPending || next == domain.BookingStatusCompleted || next == domain.BookingStatusCancelled
	}
	return false
}

func (s *BookingService) recordStatusChange(ctx context.Context, actorType domain.SubjectType, actorID *string, bookingID string, oldStatus, newStatus domain.BookingStatus, comment string) error {
	newValue := map[string]any{"status": newStatus}
	if comment = strings.TrimSpace(comment); comment != "" {
		newValue["comment"] = comment
	}
	return s.history.Create(ctx, &domain.BookingHistory{
		BookingID:     bookingID,
		ChangedByType: actorType,
		ChangedByID:   actorID,
		ChangeType:    domain.ChangeTypeStatus,
		OldValue:      map[string]any{"status": oldStatus},
		NewValue:      newValue,
	})
}
