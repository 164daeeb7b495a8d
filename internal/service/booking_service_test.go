package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-assignment/internal/domain"
	"github.com/spec-kit/staff-assignment/internal/events"
	"github.com/spec-kit/staff-assignment/internal/repository"
	apperrors "github.com/spec-kit/staff-assignment/pkg/util/errorutil"
)

type bookingFixture struct {
	svc      *BookingService
	created  []*domain.Booking
	stored   map[string]*domain.Booking
	history  *mockHistoryRepo
	events   *recordingDispatcher
	listSeen repository.BookingFilter
	// beforeWrite runs inside Update, standing in for a concurrent writer.
	beforeWrite func(b *domain.Booking) error
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	f := &bookingFixture{
		stored:  map[string]*domain.Booking{},
		history: &mockHistoryRepo{},
		events:  &recordingDispatcher{},
	}
	bookingRepo := &mockBookingRepo{
		CreateFunc: func(_ context.Context, b *domain.Booking) error {
			b.ID = "bk-new"
			f.created = append(f.created, b)
			return nil
		},
		GetByIDFunc: func(_ context.Context, id string) (*domain.Booking, error) {
			b, ok := f.stored[id]
			if !ok {
				return nil, errNoRows()
			}
			copied := *b
			return &copied, nil
		},
		UpdateFunc: func(_ context.Context, b *domain.Booking, expected repository.BookingVersion) error {
			if f.beforeWrite != nil {
				if err := f.beforeWrite(b); err != nil {
					return err
				}
			}
			return compareAndStore(f.stored, b, expected)
		},
		ListFunc: func(_ context.Context, filter repository.BookingFilter) ([]domain.Booking, error) {
			f.listSeen = filter
			return []domain.Booking{}, nil
		},
	}
	branches := &mockBranchRepo{branches: map[string]domain.Branch{
		"b1":     {ID: "b1", Name: "Downtown Spa", IsActive: true},
		"b2":     {ID: "b2", Name: "Harbour Hotel", IsActive: true},
		"closed": {ID: "closed", Name: "Closed", IsActive: false},
	}}
	staff := &mockStaffRepo{
		GetByIDFunc: func(_ context.Context, id string) (*domain.StaffMember, error) {
			return &domain.StaffMember{ID: id, Email: id + "@example.com"}, nil
		},
	}
	f.svc = NewBookingService(BookingDependencies{
		BookingRepo: bookingRepo,
		BranchRepo:  branches,
		StaffRepo:   staff,
		HistoryRepo: f.history,
		Dispatcher:  f.events,
	})
	f.svc.now = func() time.Time { return time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC) }
	return f
}

func validBookingInput() BookingCreateInput {
	return BookingCreateInput{
		BranchID:       "b1",
		ServiceRole:    domain.StaffRoleTherapist,
		RequiredSkills: []string{" Massage ", "massage", "hot-stone"},
		StartsAt:       tuesday(10),
		EndsAt:         tuesday(12),
		GuestName:      "  Room 214 ",
	}
}

func TestCreateBooking_Pending(t *testing.T) {
	f := newBookingFixture(t)
	customer := &domain.User{ID: "u1", AccountType: domain.AccountTypeCustomer}

	booking, err := f.svc.CreateBooking(context.Background(), customer, validBookingInput())
	require.NoError(t, err)

	assert.Equal(t, "bk-new", booking.ID)
	assert.Equal(t, domain.BookingStatusPending, booking.Status)
	assert.Equal(t, "u1", booking.RequesterID)
	assert.Equal(t, []string{"massage", "hot-stone"}, booking.RequiredSkills)
	assert.Equal(t, "Room 214", booking.GuestName)
	assert.Regexp(t, `^BKG-[0-9A-F]{8}$`, booking.ExternalKey)
	assert.Nil(t, booking.AssigneeID)
	assert.Equal(t, []events.EventType{events.EventBookingCreated}, f.events.types())
}

func TestCreateBooking_Validation(t *testing.T) {
	customer := &domain.User{ID: "u1", AccountType: domain.AccountTypeCustomer}
	cases := []struct {
		name   string
		mutate func(*BookingCreateInput)
		code   string
	}{
		{"missing branch", func(in *BookingCreateInput) { in.BranchID = "" }, apperrors.CodeValidationFailed},
		{"manager not bookable", func(in *BookingCreateInput) { in.ServiceRole = domain.StaffRoleManager }, apperrors.CodeValidationFailed},
		{"inverted window", func(in *BookingCreateInput) { in.EndsAt = in.StartsAt.Add(-time.Hour) }, apperrors.CodeValidationFailed},
		{"in the past", func(in *BookingCreateInput) {
			in.StartsAt = time.Date(2025, time.February, 1, 10, 0, 0, 0, time.UTC)
			in.EndsAt = in.StartsAt.Add(time.Hour)
		}, apperrors.CodeValidationFailed},
		{"unknown branch", func(in *BookingCreateInput) { in.BranchID = "nowhere" }, apperrors.CodeNotFound},
		{"inactive branch", func(in *BookingCreateInput) { in.BranchID = "closed" }, apperrors.CodeConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newBookingFixture(t)
			input := validBookingInput()
			tc.mutate(&input)

			_, err := f.svc.CreateBooking(context.Background(), customer, input)

			code, _ := domainCode(t, err)
			assert.Equal(t, tc.code, code)
			assert.Empty(t, f.created)
		})
	}
}

func TestCreateBooking_HotelBoundToBranch(t *testing.T) {
	f := newBookingFixture(t)
	hotel := &domain.User{ID: "u-hotel", AccountType: domain.AccountTypeHotel, BranchID: strPtr("b2")}

	input := validBookingInput()
	input.BranchID = ""
	booking, err := f.svc.CreateBooking(context.Background(), hotel, input)
	require.NoError(t, err)
	assert.Equal(t, "b2", booking.BranchID)

	input.BranchID = "b1"
	_, err = f.svc.CreateBooking(context.Background(), hotel, input)
	code, _ := domainCode(t, err)
	assert.Equal(t, apperrors.CodeForbidden, code)
}

func TestCancelBooking_PublishesAssigneeEmail(t *testing.T) {
	f := newBookingFixture(t)
	f.stored["bk-1"] = &domain.Booking{ID: "bk-1", RequesterID: "u1", Status: domain.BookingStatusAssigned,
		AssigneeID: strPtr("s-ann"), StartsAt: tuesday(10), EndsAt: tuesday(12)}

	booking, err := f.svc.CancelBooking(context.Background(), "u1", "bk-1", "change of plans")
	require.NoError(t, err)

	assert.Equal(t, domain.BookingStatusCancelled, booking.Status)
	require.NotNil(t, booking.CancelledAt)
	require.Len(t, f.history.entries, 1)
	assert.Equal(t, "change of plans", f.history.entries[0].NewValue["comment"])

	require.Len(t, f.events.published, 1)
	payload, ok := f.events.published[0].Payload.(events.BookingCancelledPayload)
	require.True(t, ok)
	assert.Equal(t, "s-ann@example.com", payload.AssigneeEmail)

	_, err = f.svc.CancelBooking(context.Background(), "u1", "bk-1", "")
	code, _ := domainCode(t, err)
	assert.Equal(t, apperrors.CodeConflict, code)
}

func TestCancelBooking_OtherOwnerForbidden(t *testing.T) {
	f := newBookingFixture(t)
	f.stored["bk-1"] = &domain.Booking{ID: "bk-1", RequesterID: "u1", Status: domain.BookingStatusPending}

	_, err := f.svc.CancelBooking(context.Background(), "u2", "bk-1", "")

	code, _ := domainCode(t, err)
	assert.Equal(t, apperrors.CodeForbidden, code)
	assert.Empty(t, f.events.types())
}

func TestCompleteAssignment(t *testing.T) {
	f := newBookingFixture(t)
	f.stored["bk-1"] = &domain.Booking{ID: "bk-1", Status: domain.BookingStatusAssigned, AssigneeID: strPtr("s-ann")}
	ann := &domain.StaffMember{ID: "s-ann", Role: domain.StaffRoleTherapist}
	bob := &domain.StaffMember{ID: "s-bob", Role: domain.StaffRoleTherapist}

	_, err := f.svc.CompleteAssignment(context.Background(), bob, "bk-1")
	code, _ := domainCode(t, err)
	assert.Equal(t, apperrors.CodeForbidden, code)

	booking, err := f.svc.CompleteAssignment(context.Background(), ann, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, booking.Status)

	_, err = f.svc.CompleteAssignment(context.Background(), ann, "bk-1")
	code, _ = domainCode(t, err)
	assert.Equal(t, apperrors.CodeConflict, code)
}

func TestCancelBooking_AssignedMeanwhileConflicts(t *testing.T) {
	f := newBookingFixture(t)
	f.stored["bk-1"] = &domain.Booking{ID: "bk-1", RequesterID: "u1", Status: domain.BookingStatusPending}
	f.beforeWrite = func(*domain.Booking) error {
		f.stored["bk-1"].Status = domain.BookingStatusAssigned
		f.stored["bk-1"].AssigneeID = strPtr("s-ann")
		return nil
	}

	_, err := f.svc.CancelBooking(context.Background(), "u1", "bk-1", "")

	code, status := domainCode(t, err)
	assert.Equal(t, apperrors.CodeConflict, code)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, domain.BookingStatusAssigned, f.stored["bk-1"].Status)
	assert.Nil(t, f.stored["bk-1"].CancelledAt)
	assert.Empty(t, f.history.entries)
	assert.Empty(t, f.events.types())
}

func TestCompleteAssignment_UnassignedMeanwhileConflicts(t *testing.T) {
	f := newBookingFixture(t)
	f.stored["bk-1"] = &domain.Booking{ID: "bk-1", Status: domain.BookingStatusAssigned, AssigneeID: strPtr("s-ann")}
	f.beforeWrite = func(*domain.Booking) error {
		f.stored["bk-1"].Status = domain.BookingStatusPending
		f.stored["bk-1"].AssigneeID = nil
		return nil
	}

	_, err := f.svc.CompleteAssignment(context.Background(), &domain.StaffMember{ID: "s-ann"}, "bk-1")

	code, _ := domainCode(t, err)
	assert.Equal(t, apperrors.CodeConflict, code)
	assert.Equal(t, domain.BookingStatusPending, f.stored["bk-1"].Status)
}

func TestListStaffAssignments_ScopesToCaller(t *testing.T) {
	f := newBookingFixture(t)
	ann := &domain.StaffMember{ID: "s-ann"}

	_, err := f.svc.ListStaffAssignments(context.Background(), ann, BookingListFilter{
		Statuses: []domain.BookingStatus{domain.BookingStatusAssigned},
		Limit:    10,
	})
	require.NoError(t, err)

	require.NotNil(t, f.listSeen.AssigneeID)
	assert.Equal(t, "s-ann", *f.listSeen.AssigneeID)
	assert.Nil(t, f.listSeen.RequesterID)
	assert.Equal(t, 10, f.listSeen.Limit)
}

func TestIsValidTransition(t *testing.T) {
	assert.True(t, isValidTransition(domain.BookingStatusPending, domain.BookingStatusAssigned))
	assert.True(t, isValidTransition(domain.BookingStatusAssigned, domain.BookingStatusPending))
	assert.False(t, isValidTransition(domain.BookingStatusPending, domain.BookingStatusCompleted))
	assert.False(t, isValidTransition(domain.BookingStatusCancelled, domain.BookingStatusPending))
	assert.False(t, isValidTransition(domain.BookingStatusCompleted, domain.BookingStatusCancelled))
}
