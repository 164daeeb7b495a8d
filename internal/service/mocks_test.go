package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/staff-assignment/internal/auth"
	"github.com/spec-kit/staff-assignment/internal/domain"
	"github.com/spec-kit/staff-assignment/internal/events"
	"github.com/spec-kit/staff-assignment/internal/repository"
)

type mockStaffRepo struct {
	CreateFunc         func(ctx context.Context, staff *domain.StaffMember) error
	UpdateFunc         func(ctx context.Context, staff *domain.StaffMember) error
	GetByIDFunc        func(ctx context.Context, id string) (*domain.StaffMember, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*domain.StaffMember, error)
	ListFunc           func(ctx context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error)
	ListCandidatesFunc func(ctx context.Context, q repository.CandidateQuery) ([]domain.StaffMember, error)
	SetSkillsFunc      func(ctx context.Context, id string, skills []string) error
}

func (m *mockStaffRepo) Create(ctx context.Context, staff *domain.StaffMember) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, staff)
	}
	return nil
}

func (m *mockStaffRepo) Update(ctx context.Context, staff *domain.StaffMember) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, staff)
	}
	return nil
}

func (m *mockStaffRepo) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStaffRepo) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockStaffRepo) List(ctx context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockStaffRepo) ListCandidates(ctx context.Context, q repository.CandidateQuery) ([]domain.StaffMember, error) {
	if m.ListCandidatesFunc != nil {
		return m.ListCandidatesFunc(ctx, q)
	}
	return nil, nil
}

func (m *mockStaffRepo) SetSkills(ctx context.Context, id string, skills []string) error {
	if m.SetSkillsFunc != nil {
		return m.SetSkillsFunc(ctx, id, skills)
	}
	return nil
}

type mockAvailabilityRepo struct {
	CreateFunc      func(ctx context.Context, a *domain.Availability) error
	DeleteFunc      func(ctx context.Context, staffID, id string) error
	ListByStaffFunc func(ctx context.Context, staffIDs []string) ([]domain.Availability, error)
}

func (m *mockAvailabilityRepo) Create(ctx context.Context, a *domain.Availability) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, a)
	}
	return nil
}

func (m *mockAvailabilityRepo) Delete(ctx context.Context, staffID, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, staffID, id)
	}
	return nil
}

func (m *mockAvailabilityRepo) ListByStaff(ctx context.Context, staffIDs []string) ([]domain.Availability, error) {
	if m.ListByStaffFunc != nil {
		return m.ListByStaffFunc(ctx, staffIDs)
	}
	return nil, nil
}

type mockBookingRepo struct {
	CreateFunc                func(ctx context.Context, b *domain.Booking) error
	UpdateFunc                func(ctx context.Context, b *domain.Booking, expected repository.BookingVersion) error
	GetByIDFunc               func(ctx context.Context, id string) (*domain.Booking, error)
	ListFunc                  func(ctx context.Context, filter repository.BookingFilter) ([]domain.Booking, error)
	ListCommittedByStaffFunc  func(ctx context.Context, staffIDs []string, from, to time.Time) ([]domain.Booking, error)
	CountCommittedByStaffFunc func(ctx context.Context, staffIDs []string, since time.Time) (map[string]int, error)
}

func (m *mockBookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, b)
	}
	b.ID = "booking-new"
	return nil
}

func (m *mockBookingRepo) Update(ctx context.Context, b *domain.Booking, expected repository.BookingVersion) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, b, expected)
	}
	return nil
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockBookingRepo) GetByExternalKey(context.Context, string) (*domain.Booking, error) {
	return nil, pgx.ErrNoRows
}

func (m *mockBookingRepo) List(ctx context.Context, filter repository.BookingFilter) ([]domain.Booking, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockBookingRepo) ListCommittedByStaff(ctx context.Context, staffIDs []string, from, to time.Time) ([]domain.Booking, error) {
	if m.ListCommittedByStaffFunc != nil {
		return m.ListCommittedByStaffFunc(ctx, staffIDs, from, to)
	}
	return nil, nil
}

func (m *mockBookingRepo) CountCommittedByStaff(ctx context.Context, staffIDs []string, since time.Time) (map[string]int, error) {
	if m.CountCommittedByStaffFunc != nil {
		return m.CountCommittedByStaffFunc(ctx, staffIDs, since)
	}
	return map[string]int{}, nil
}

type mockHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.BookingHistory
}

func (m *mockHistoryRepo) Create(_ context.Context, h *domain.BookingHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *h)
	return nil
}

func (m *mockHistoryRepo) ListByBooking(_ context.Context, bookingID string) ([]domain.BookingHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BookingHistory
	for _, h := range m.entries {
		if h.BookingID == bookingID {
			out = append(out, h)
		}
	}
	return out, nil
}

type mockBranchRepo struct {
	branches map[string]domain.Branch
}

func (m *mockBranchRepo) Create(_ context.Context, b *domain.Branch) error {
	if m.branches == nil {
		m.branches = map[string]domain.Branch{}
	}
	b.ID = "branch-new"
	m.branches[b.ID] = *b
	return nil
}

func (m *mockBranchRepo) Update(_ context.Context, b *domain.Branch) error {
	if _, ok := m.branches[b.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.branches[b.ID] = *b
	return nil
}

func (m *mockBranchRepo) GetByID(_ context.Context, id string) (*domain.Branch, error) {
	b, ok := m.branches[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &b, nil
}

func (m *mockBranchRepo) List(context.Context, bool) ([]domain.Branch, error) {
	out := make([]domain.Branch, 0, len(m.branches))
	for _, b := range m.branches {
		out = append(out, b)
	}
	return out, nil
}

type mockUserRepo struct {
	users map[string]*domain.User
}

func (m *mockUserRepo) Create(_ context.Context, u *domain.User) error {
	if m.users == nil {
		m.users = map[string]*domain.User{}
	}
	u.ID = "user-" + u.Email
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, u *domain.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *u
	return &out, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memoryResetTokens struct {
	pending map[string]domain.PasswordReset
}

func (m *memoryResetTokens) Save(_ context.Context, reset domain.PasswordReset) error {
	if m.pending == nil {
		m.pending = map[string]domain.PasswordReset{}
	}
	m.pending[reset.Token] = reset
	return nil
}

func (m *memoryResetTokens) Consume(_ context.Context, token string) (*domain.PasswordReset, error) {
	reset, ok := m.pending[token]
	if !ok {
		return nil, auth.ErrResetTokenNotFound
	}
	delete(m.pending, token)
	return &reset, nil
}

type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, len(d.published))
	for i, e := range d.published {
		out[i] = e.Type
	}
	return out
}

func errNoRows() error { return pgx.ErrNoRows }

// compareAndStore writes b into stored when the stored row still matches
// expected, like the conditional UPDATE in the booking repository.
func compareAndStore(stored map[string]*domain.Booking, b *domain.Booking, expected repository.BookingVersion) error {
	current, ok := stored[b.ID]
	if !ok || current.Status != expected.Status || !sameAssignee(current.AssigneeID, expected.AssigneeID) {
		return repository.ErrBookingChanged
	}
	copied := *b
	stored[b.ID] = &copied
	return nil
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
