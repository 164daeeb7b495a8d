package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-assignment/internal/api/http/handlers"
	"github.com/spec-kit/staff-assignment/internal/assignment"
	"github.com/spec-kit/staff-assignment/internal/auth"
	"github.com/spec-kit/staff-assignment/internal/domain"
	"github.com/spec-kit/staff-assignment/internal/observability"
	"github.com/spec-kit/staff-assignment/internal/repository"
	"github.com/spec-kit/staff-assignment/internal/service"
	"github.com/spec-kit/staff-assignment/internal/validation"
)

const branchID = "0b9c7d7e-2f41-4e55-8f0a-3b1f6f0f9a01"

type fakeStaffRepo struct {
	staff []domain.StaffMember
}

func (f *fakeStaffRepo) find(match func(domain.StaffMember) bool) (*domain.StaffMember, error) {
	for _, s := range f.staff {
		if match(s) {
			out := s
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStaffRepo) Create(context.Context, *domain.StaffMember) error { return nil }
func (f *fakeStaffRepo) Update(context.Context, *domain.StaffMember) error { return nil }
func (f *fakeStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	return f.find(func(s domain.StaffMember) bool { return s.ID == id })
}
func (f *fakeStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	return f.find(func(s domain.StaffMember) bool { return s.Email == email })
}
func (f *fakeStaffRepo) List(context.Context, repository.StaffFilter) ([]domain.StaffMember, error) {
	return f.staff, nil
}
func (f *fakeStaffRepo) ListCandidates(_ context.Context, q repository.CandidateQuery) ([]domain.StaffMember, error) {
	var out []domain.StaffMember
	if q.Offset > 0 {
		return out, nil
	}
	for _, s := range f.staff {
		if s.Role == q.Role && (!q.ActiveOnly || s.Active) {
			out = append(out, s)
		}
	}
	return out, nil
}
func (f *fakeStaffRepo) SetSkills(context.Context, string, []string) error { return nil }

type fakeUserRepo struct{}

func (fakeUserRepo) Create(context.Context, *domain.User) error { return nil }
func (fakeUserRepo) Update(context.Context, *domain.User) error { return nil }
func (fakeUserRepo) GetByID(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}
func (fakeUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

type fakeAvailabilityRepo struct{}

func (fakeAvailabilityRepo) Create(context.Context, *domain.Availability) error { return nil }
func (fakeAvailabilityRepo) Delete(context.Context, string, string) error       { return nil }
func (fakeAvailabilityRepo) ListByStaff(context.Context, []string) ([]domain.Availability, error) {
	return nil, nil
}

type fakeBookingRepo struct{}

func (fakeBookingRepo) Create(context.Context, *domain.Booking) error { return nil }
func (fakeBookingRepo) Update(context.Context, *domain.Booking, repository.BookingVersion) error {
	return nil
}
func (fakeBookingRepo) GetByID(context.Context, string) (*domain.Booking, error) {
	return nil, pgx.ErrNoRows
}
func (fakeBookingRepo) GetByExternalKey(context.Context, string) (*domain.Booking, error) {
	return nil, pgx.ErrNoRows
}
func (fakeBookingRepo) List(context.Context, repository.BookingFilter) ([]domain.Booking, error) {
	return nil, nil
}
func (fakeBookingRepo) ListCommittedByStaff(context.Context, []string, time.Time, time.Time) ([]domain.Booking, error) {
	return nil, nil
}
func (fakeBookingRepo) CountCommittedByStaff(context.Context, []string, time.Time) (map[string]int, error) {
	return map[string]int{"s-bob": 3}, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, checks ...handlers.HealthCheck) *testServer {
	t.Helper()
	staffRepo := &fakeStaffRepo{staff: []domain.StaffMember{
		{ID: "s-mgr", Email: "mgr@example.com", Role: domain.StaffRoleManager, Active: true},
		{ID: "s-ther", Email: "ther@example.com", Role: domain.StaffRoleTherapist, Active: true, BranchIDs: []string{branchID}, Skills: []string{"massage"}},
		{ID: "s-bob", Email: "bob@example.com", Role: domain.StaffRoleTherapist, Active: true, BranchIDs: []string{branchID}, Skills: []string{"massage"}},
		{ID: "s-off", Email: "off@example.com", Role: domain.StaffRoleTherapist, Active: false, BranchIDs: []string{branchID}, Skills: []string{"massage"}},
	}}
	tokens := auth.NewTokenManager("test-secret", "staff-assignment-test", 15)
	v := validation.MustNew()
	assignments := service.NewAssignmentService(service.AssignmentDependencies{
		StaffRepo:        staffRepo,
		AvailabilityRepo: fakeAvailabilityRepo{},
		BookingRepo:      fakeBookingRepo{},
		Policy:           assignment.DefaultPolicy(),
	})

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("staff-assignment", "test", checks...),
		Users:          handlers.NewUsersHandler(nil, v),
		Staff:          handlers.NewStaffHandler(nil, nil, v),
		Branches:       handlers.NewBranchesHandler(nil, v),
		Bookings:       handlers.NewBookingsHandler(nil, v),
		Dispatch:       handlers.NewDispatchHandler(assignments, v),
		Assignments:    handlers.NewAssignmentsHandler(nil),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, fakeUserRepo{}, staffRepo).Handle,
	})
	return &testServer{app: app, tokens: tokens}
}

func (s *testServer) staffToken(t *testing.T, id string, role domain.StaffRole) string {
	t.Helper()
	token, _, err := s.tokens.GenerateToken(id, domain.SubjectTypeStaff, &role)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), string(raw))
	}
	return resp.StatusCode, payload
}

func errorCode(t *testing.T, payload map[string]any) string {
	t.Helper()
	errObj, ok := payload["error"].(map[string]any)
	require.True(t, ok, "missing error envelope: %v", payload)
	code, _ := errObj["code"].(string)
	return code
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t,
		handlers.HealthCheck{Name: "postgres", Pinger: stubPinger{}},
		handlers.HealthCheck{Name: "redis", Pinger: stubPinger{err: errors.New("connection refused")}},
	)

	status, body := srv.do(t, fiber.MethodGet, "/health/live", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = srv.do(t, fiber.MethodGet, "/health/ready", "", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(t, body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "ok", details["postgres"])
	assert.Equal(t, "connection refused", details["redis"])
}

func TestEligibleStaff_RanksActiveMatches(t *testing.T) {
	srv := newTestServer(t)
	token := srv.staffToken(t, "s-mgr", domain.StaffRoleManager)

	status, body := srv.do(t, fiber.MethodPost, "/dispatch/eligible-staff", token,
		`{"role":"THERAPIST","branch_id":"`+branchID+`","required_skills":["massage"]}`)
	require.Equal(t, fiber.StatusOK, status, body)

	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 2)
	first := data[0].(map[string]any)
	second := data[1].(map[string]any)
	assert.Equal(t, "s-ther", first["staff_id"])
	assert.Equal(t, float64(1), first["rank"])
	assert.Equal(t, "s-bob", second["staff_id"])
	assert.Equal(t, float64(3), second["current_assignments"])
	assert.Equal(t, assignment.DefaultPolicy().String(), body["meta"].(map[string]any)["ranking"])
}

func TestEligibleStaff_Errors(t *testing.T) {
	srv := newTestServer(t)
	manager := srv.staffToken(t, "s-mgr", domain.StaffRoleManager)
	therapist := srv.staffToken(t, "s-ther", domain.StaffRoleTherapist)

	cases := []struct {
		name   string
		token  string
		body   string
		status int
		code   string
	}{
		{"no token", "", `{"role":"THERAPIST"}`, fiber.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", "not-a-jwt", `{"role":"THERAPIST"}`, fiber.StatusUnauthorized, "UNAUTHORIZED"},
		{"therapist cannot dispatch", therapist, `{"role":"THERAPIST"}`, fiber.StatusForbidden, "FORBIDDEN"},
		{"missing role", manager, `{"branch_id":"` + branchID + `"}`, fiber.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown role", manager, `{"role":"CHEF"}`, fiber.StatusBadRequest, "VALIDATION_FAILED"},
		{"half a window", manager, `{"role":"THERAPIST","starts_at":"2025-03-04T10:00:00Z"}`, fiber.StatusBadRequest, "VALIDATION_FAILED"},
		{"inverted window", manager, `{"role":"THERAPIST","starts_at":"2025-03-04T12:00:00Z","ends_at":"2025-03-04T10:00:00Z"}`, fiber.StatusBadRequest, "INVALID_CONSTRAINT"},
		{"malformed json", manager, `{"role":`, fiber.StatusBadRequest, "VALIDATION_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := srv.do(t, fiber.MethodPost, "/dispatch/eligible-staff", tc.token, tc.body)
			assert.Equal(t, tc.status, status, body)
			assert.Equal(t, tc.code, errorCode(t, body))
		})
	}
}

func TestUnknownBookingIsNotFound(t *testing.T) {
	srv := newTestServer(t)
	token := srv.staffToken(t, "s-mgr", domain.StaffRoleManager)

	status, body := srv.do(t, fiber.MethodPost, "/dispatch/bookings/missing/auto-assign", token, "")

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, fiber.MethodGet, "/nowhere", "", "")

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}
