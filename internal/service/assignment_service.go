package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-assignment/internal/assignment"
	"github.com/spec-kit/staff-assignment/internal/cache"
	"github.com/spec-kit/staff-assignment/internal/domain"
	"github.com/spec-kit/staff-assignment/internal/events"
	"github.com/spec-kit/staff-assignment/internal/observability"
	"github.com/spec-kit/staff-assignment/internal/repository"
	apperrors "github.com/spec-kit/staff-assignment/pkg/util/errorutil"
)

// defaultCandidateLimit is the roster page size and result cap when none is configured.
const defaultCandidateLimit = 500

// AssignmentService loads rosters, runs the eligibility filter and commits
// assignments on bookings.
type AssignmentService struct {
	staff          repository.StaffRepository
	availability   repository.AvailabilityRepository
	bookings       repository.BookingRepository
	historyRepo    repository.BookingHistoryRepository
	rosters        *cache.RosterCache
	dispatcher     events.Dispatcher
	metrics        *observability.Metrics
	logger         *zap.Logger
	policy         assignment.Policy
	candidateLimit int
	now            func() time.Time
}

// AssignmentDependencies bundles repositories and collaborators.
type AssignmentDependencies struct {
	StaffRepo        repository.StaffRepository
	AvailabilityRepo repository.AvailabilityRepository
	BookingRepo      repository.BookingRepository
	HistoryRepo      repository.BookingHistoryRepository
	Rosters          *cache.RosterCache
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	Policy           assignment.Policy
	CandidateLimit   int
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		staff:          deps.StaffRepo,
		availability:   deps.AvailabilityRepo,
		bookings:       deps.BookingRepo,
		historyRepo:    deps.HistoryRepo,
		rosters:        deps.Rosters,
		dispatcher:     deps.Dispatcher,
		metrics:        deps.Metrics,
		logger:         logger,
		policy:         deps.Policy,
		candidateLimit: deps.CandidateLimit,
		now:            time.Now,
	}
}

// Policy returns the ranking policy in effect.
func (s *AssignmentService) Policy() assignment.Policy {
	return s.policy
}

// FindEligibleStaff returns the ranked staff satisfying c.
func (s *AssignmentService) FindEligibleStaff(ctx context.Context, c assignment.Constraint) ([]assignment.Ranked, error) {
	return s.eligible(ctx, c, nil)
}

// CandidatesForBooking returns the ranked staff who could take bookingID.
func (s *AssignmentService) CandidatesForBooking(ctx context.Context, actor *domain.StaffMember, bookingID string, preferred []string) (*domain.Booking, []assignment.Ranked, error) {
	if err := requireDispatcher(actor); err != nil {
		return nil, nil, err
	}
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	c := assignment.ConstraintForBooking(booking)
	c.PreferredStaffIDs = preferred
	ranked, err := s.eligible(ctx, c, booking)
	if err != nil {
		return nil, nil, err
	}
	return booking, ranked, nil
}

// AssignBookingToStaff assigns booking to the chosen staff member after
// checking the staff member is eligible for it.
func (s *AssignmentService) AssignBookingToStaff(ctx context.Context, actor *domain.StaffMember, bookingID, staffID string) (*domain.Booking, error) {
	if err := requireDispatcher(actor); err != nil {
		return nil, err
	}
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := requireAssignable(booking); err != nil {
		return nil, err
	}
	if booking.AssigneeID != nil && *booking.AssigneeID == staffID {
		return booking, nil
	}

	assignee, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, notFound(err, "staff", map[string]any{"staff_id": staffID})
	}
	roster := []domain.StaffMember{*assignee}
	if err := s.attachAvailability(ctx, roster); err != nil {
		return nil, apperrors.MapError(err)
	}
	window := booking.Window()
	if err := s.attachWorkload(ctx, roster, &window, booking); err != nil {
		return nil, apperrors.MapError(err)
	}
	reason, err := assignment.Explain(&roster[0], assignment.ConstraintForBooking(booking))
	if err != nil {
		return nil, constraintError(err)
	}
	if reason != assignment.ReasonEligible {
		return nil, apperrors.NewConflictCode(apperrors.CodeStaffNotEligible, "staff member is not eligible for this booking",
			map[string]any{"staff_id": staffID, "reason": string(reason)})
	}

	if err := s.commit(ctx, actor, booking, &roster[0], false); err != nil {
		return nil, err
	}
	return booking, nil
}

// AutoAssignBooking assigns the top-ranked eligible staff member.
func (s *AssignmentService) AutoAssignBooking(ctx context.Context, actor *domain.StaffMember, bookingID string, preferred []string) (*domain.Booking, *assignment.Ranked, error) {
	if err := requireDispatcher(actor); err != nil {
		return nil, nil, err
	}
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking.Status != domain.BookingStatusPending {
		return nil, nil, apperrors.NewConflict("only pending bookings can be auto-assigned",
			map[string]any{"booking_id": booking.ID, "status": booking.Status})
	}
	c := assignment.ConstraintForBooking(booking)
	c.PreferredStaffIDs = preferred
	ranked, err := s.eligible(ctx, c, booking)
	if err != nil {
		return nil, nil, err
	}
	if len(ranked) == 0 {
		return nil, nil, apperrors.NewConflictCode(apperrors.CodeNoEligibleStaff, "no eligible staff for booking",
			map[string]any{"booking_id": booking.ID})
	}
	top := ranked[0]
	if err := s.commit(ctx, actor, booking, top.Staff, true); err != nil {
		return nil, nil, err
	}
	return booking, &top, nil
}

// UnassignBooking returns an assigned booking to the pending pool.
func (s *AssignmentService) UnassignBooking(ctx context.Context, actor *domain.StaffMember, bookingID, reason string) (*domain.Booking, error) {
	if err := requireDispatcher(actor); err != nil {
		return nil, err
	}
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusAssigned || booking.AssigneeID == nil {
		return nil, apperrors.NewConflict("booking is not assigned", map[string]any{"booking_id": booking.ID, "status": booking.Status})
	}
	previous := *booking.AssigneeID
	expected := repository.VersionOf(booking)
	booking.AssigneeID = nil
	booking.Status = domain.BookingStatusPending
	if err := s.bookings.Update(ctx, booking, expected); err != nil {
		return nil, bookingWriteError(err, booking)
	}
	if err := s.recordAssigneeChange(ctx, actor.ID, booking.ID, &previous, nil); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.recordStatusChange(ctx, actor.ID, booking.ID, domain.BookingStatusAssigned, domain.BookingStatusPending); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventStaffUnassigned,
		BookingID: booking.ID,
		Actor:     staffActor(actor.ID),
		Payload:   events.StaffUnassignedPayload{StaffID: previous, Reason: reason},
	})
	return booking, nil
}

// History returns the audit trail of a booking.
func (s *AssignmentService) History(ctx context.Context, actor *domain.StaffMember, bookingID string) ([]domain.BookingHistory, error) {
	if err := requireDispatcher(actor); err != nil {
		return nil, err
	}
	if _, err := s.loadBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	history, err := s.historyRepo.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return history, nil
}

func (s *AssignmentService) eligible(ctx context.Context, c assignment.Constraint, booking *domain.Booking) ([]assignment.Ranked, error) {
	if err := c.Validate(); err != nil {
		return nil, constraintError(err)
	}
	roster, err := s.roster(ctx, c.Role, c.BranchID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.attachWorkload(ctx, roster, c.Window, booking); err != nil {
		return nil, apperrors.MapError(err)
	}
	ranked, err := assignment.Filter(roster, c, s.policy)
	if err != nil {
		return nil, constraintError(err)
	}
	if s.candidateLimit > 0 && len(ranked) > s.candidateLimit {
		s.logger.Warn("eligible staff truncated",
			zap.String("role", string(c.Role)),
			zap.Int("eligible", len(ranked)),
			zap.Int("limit", s.candidateLimit))
		ranked = ranked[:s.candidateLimit]
	}
	s.metrics.RecordMatch(string(c.Role), len(ranked))
	s.logger.Debug("eligibility evaluated",
		zap.String("role", string(c.Role)),
		zap.String("branch_id", c.BranchID),
		zap.Int("candidates", len(roster)),
		zap.Int("eligible", len(ranked)))
	return ranked, nil
}

// roster returns every active staff member of role (at branchID when set)
// with their availability, from cache when possible. The database is read in
// pages so nobody is dropped before filtering.
func (s *AssignmentService) roster(ctx context.Context, role domain.StaffRole, branchID string) ([]domain.StaffMember, error) {
	cached, slot, ok := s.rosters.Get(ctx, role, branchID)
	if ok {
		return cached, nil
	}
	size := s.pageSize()
	q := repository.CandidateQuery{Role: role, ActiveOnly: true, Limit: size}
	if branchID != "" {
		q.BranchIDs = []string{branchID}
	}
	staff := []domain.StaffMember{}
	for {
		page, err := s.staff.ListCandidates(ctx, q)
		if err != nil {
			return nil, err
		}
		staff = append(staff, page...)
		if len(page) < size {
			break
		}
		q.Offset += size
	}
	if err := s.attachAvailability(ctx, staff); err != nil {
		return nil, err
	}
	s.rosters.Set(ctx, slot, staff)
	return staff, nil
}

func (s *AssignmentService) pageSize() int {
	if s.candidateLimit > 0 {
		return s.candidateLimit
	}
	return defaultCandidateLimit
}

func (s *AssignmentService) attachAvailability(ctx context.Context, staff []domain.StaffMember) error {
	if len(staff) == 0 {
		return nil
	}
	windows, err := s.availability.ListByStaff(ctx, staffIDs(staff))
	if err != nil {
		return err
	}
	byStaff := make(map[string][]domain.Availability, len(staff))
	for _, w := range windows {
		byStaff[w.StaffID] = append(byStaff[w.StaffID], w)
	}
	for i := range staff {
		staff[i].Availability = byStaff[staff[i].ID]
	}
	return nil
}

// attachWorkload fills CurrentAssignments and, when a window is requested, the
// busy windows that overlap it. The booking being (re)assigned never counts
// against anyone.
func (s *AssignmentService) attachWorkload(ctx context.Context, staff []domain.StaffMember, window *domain.TimeWindow, current *domain.Booking) error {
	if len(staff) == 0 {
		return nil
	}
	ids := staffIDs(staff)
	now := s.now()
	counts, err := s.bookings.CountCommittedByStaff(ctx, ids, now)
	if err != nil {
		return err
	}
	if current != nil && current.Status.Committed() && current.AssigneeID != nil && current.EndsAt.After(now) {
		if n := counts[*current.AssigneeID]; n > 0 {
			counts[*current.AssigneeID] = n - 1
		}
	}

	busy := map[string][]domain.TimeWindow{}
	if window != nil {
		committed, err := s.bookings.ListCommittedByStaff(ctx, ids, window.Start, window.End)
		if err != nil {
			return err
		}
		for _, b := range committed {
			if b.AssigneeID == nil || (current != nil && b.ID == current.ID) {
				continue
			}
			busy[*b.AssigneeID] = append(busy[*b.AssigneeID], b.Window())
		}
	}

	for i := range staff {
		staff[i].CurrentAssignments = counts[staff[i].ID]
		staff[i].Busy = busy[staff[i].ID]
	}
	return nil
}

func (s *AssignmentService) commit(ctx context.Context, actor *domain.StaffMember, booking *domain.Booking, assignee *domain.StaffMember, auto bool) error {
	previous := booking.AssigneeID
	oldStatus := booking.Status
	expected := repository.VersionOf(booking)
	booking.AssigneeID = &assignee.ID
	booking.Status = domain.BookingStatusAssigned
	if err := s.bookings.Update(ctx, booking, expected); err != nil {
		return bookingWriteError(err, booking)
	}
	if err := s.recordAssigneeChange(ctx, actor.ID, booking.ID, previous, booking.AssigneeID); err != nil {
		return apperrors.MapError(err)
	}
	if oldStatus != booking.Status {
		if err := s.recordStatusChange(ctx, actor.ID, booking.ID, oldStatus, booking.Status); err != nil {
			return apperrors.MapError(err)
		}
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventStaffAssigned,
		BookingID: booking.ID,
		Actor:     staffActor(actor.ID),
		Payload: events.StaffAssignedPayload{
			StaffID:         assignee.ID,
			StaffName:       assignee.Name,
			StaffEmail:      assignee.Email,
			PreviousStaffID: previous,
			BranchID:        booking.BranchID,
			GuestName:       booking.GuestName,
			StartsAt:        booking.StartsAt,
			EndsAt:          booking.EndsAt,
			Auto:            auto,
		},
	})
	return nil
}

func (s *AssignmentService) loadBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, notFound(err, "booking", map[string]any{"booking_id": bookingID})
	}
	return booking, nil
}

func requireAssignable(booking *domain.Booking) error {
	switch booking.Status {
	case domain.BookingStatusPending, domain.BookingStatusAssigned:
		return nil
	}
	return apperrors.NewConflict("booking can no longer be assigned",
		map[string]any{"booking_id": booking.ID, "status": booking.Status})
}

func constraintError(err error) error {
	var ce *assignment.ConstraintError
	if errors.As(err, &ce) {
		return apperrors.NewInvalidConstraint(ce.Error(), err, map[string]any{ce.Field: ce.Reason})
	}
	if errors.Is(err, assignment.ErrInvalidConstraint) {
		return apperrors.NewInvalidConstraint(err.Error(), err, nil)
	}
	return apperrors.MapError(err)
}

func staffIDs(staff []domain.StaffMember) []string {
	ids := make([]string, len(staff))
	for i := range staff {
		ids[i] = staff[i].ID
	}
	return ids
}

func (s *AssignmentService) recordAssigneeChange(ctx context.Context, actorID, bookingID string, oldAssignee, newAssignee *string) error {
	return s.historyRepo.Create(ctx, &domain.BookingHistory{
		BookingID:     bookingID,
		ChangedByType: domain.SubjectTypeStaff,
		ChangedByID:   &actorID,
		ChangeType:    domain.ChangeTypeAssignee,
		OldValue:      map[string]any{"assignee_staff_id": oldAssignee},
		NewValue:      map[string]any{"assignee_staff_id": newAssignee},
	})
}

func (s *AssignmentService) recordStatusChange(ctx context.Context, actorID, bookingID string, oldStatus, newStatus domain.BookingStatus) error {
	return s.historyRepo.Create(ctx, &domain.BookingHistory{
		BookingID:     bookingID,
		ChangedByType: domain.SubjectTypeStaff,
		ChangedByID:   &actorID,
		ChangeType:    domain.ChangeTypeStatus,
		OldValue:      map[string]any{"status": oldStatus},
		NewValue:      map[string]any{"status": newStatus},
	})
}
