package service

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/staff-assignment/internal/auth"
	"github.com/spec-kit/staff-assignment/internal/domain"
	"github.com/spec-kit/staff-assignment/internal/events"
	apperrors "github.com/spec-kit/staff-assignment/pkg/util/errorutil"
)

type authFixture struct {
	svc    *AuthService
	users  *mockUserRepo
	staff  map[string]*domain.StaffMember
	resets *memoryResetTokens
	events *recordingDispatcher
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:  &mockUserRepo{},
		staff:  map[string]*domain.StaffMember{},
		resets: &memoryResetTokens{},
		events: &recordingDispatcher{},
	}
	staffRepo := &mockStaffRepo{
		GetByEmailFunc: func(_ context.Context, email string) (*domain.StaffMember, error) {
			for _, s := range f.staff {
				if s.Email == email {
					out := *s
					return &out, nil
				}
			}
			return nil, errNoRows()
		},
		GetByIDFunc: func(_ context.Context, id string) (*domain.StaffMember, error) {
			s, ok := f.staff[id]
			if !ok {
				return nil, errNoRows()
			}
			out := *s
			return &out, nil
		},
		UpdateFunc: func(_ context.Context, s *domain.StaffMember) error {
			stored := *s
			f.staff[s.ID] = &stored
			return nil
		},
	}
	f.svc = NewAuthService(testConfig(), AuthDependencies{
		UserRepo:    f.users,
		StaffRepo:   staffRepo,
		BranchRepo:  &mockBranchRepo{branches: map[string]domain.Branch{"b1": {ID: "b1", IsActive: true}}},
		ResetTokens: f.resets,
		Dispatcher:  f.events,
	})
	return f
}

func (f *authFixture) addStaff(t *testing.T, id, email, password string, role domain.StaffRole) {
	t.Helper()
	hash, err := auth.HashPassword(password, testConfig().Auth.BcryptCost)
	require.NoError(t, err)
	f.staff[id] = &domain.StaffMember{ID: id, Email: email, PasswordHash: hash, Role: role, Active: true}
}

func TestRegisterAndLoginUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, token, _, err := f.svc.RegisterUser(ctx, RegisterUserInput{Name: "Guest", Email: " Guest@Example.com ", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "guest@example.com", user.Email)
	assert.Equal(t, domain.AccountTypeCustomer, user.AccountType)

	claims, err := f.svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, domain.SubjectTypeUser, claims.SubjectType)

	_, _, _, err = f.svc.RegisterUser(ctx, RegisterUserInput{Name: "Dup", Email: "guest@example.com", Password: "another-pass"})
	code, _ := domainCode(t, err)
	assert.Equal(t, apperrors.CodeConflict, code)

	_, _, _, err = f.svc.LoginUser(ctx, "GUEST@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, _, _, err = f.svc.LoginUser(ctx, "guest@example.com", "wrong")
	code, _ = domainCode(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, code)
}

func TestRegisterUser_HotelNeedsKnownBranch(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, _, _, err := f.svc.RegisterUser(ctx, RegisterUserInput{Name: "Hotel", Email: "h@example.com", Password: "s3cret-pass", AccountType: domain.AccountTypeHotel})
	code, _ := domainCode(t, err)
	assert.Equal(t, apperrors.CodeValidationFailed, code)

	_, _, _, err = f.svc.RegisterUser(ctx, RegisterUserInput{Name: "Hotel", Email: "h@example.com", Password: "s3cret-pass",
		AccountType: domain.AccountTypeHotel, BranchID: strPtr("elsewhere")})
	code, _ = domainCode(t, err)
	assert.Equal(t, apperrors.CodeNotFound, code)

	user, _, _, err := f.svc.RegisterUser(ctx, RegisterUserInput{Name: "Hotel", Email: "h@example.com", Password: "s3cret-pass",
		AccountType: domain.AccountTypeHotel, BranchID: strPtr("b1")})
	require.NoError(t, err)
	assert.Equal(t, "b1", *user.BranchID)
}

func TestLoginStaff_CarriesRole(t *testing.T) {
	f := newAuthFixture(t)
	f.addStaff(t, "s-mgr", "mgr@example.com", "manager-pass", domain.StaffRoleManager)

	staff, token, _, err := f.svc.LoginStaff(context.Background(), "mgr@example.com", "manager-pass")
	require.NoError(t, err)
	assert.Equal(t, "s-mgr", staff.ID)

	claims, err := f.svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	require.NotNil(t, claims.Role)
	assert.Equal(t, domain.StaffRoleManager, *claims.Role)
	assert.Equal(t, domain.SubjectTypeStaff, claims.SubjectType)

	f.staff["s-mgr"].Active = false
	_, _, _, err = f.svc.LoginStaff(context.Background(), "mgr@example.com", "manager-pass")
	code, _ := domainCode(t, err)
	assert.Equal(t, apperrors.CodeForbidden, code)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.addStaff(t, "s-ann", "ann@example.com", "old-password", domain.StaffRoleTherapist)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ann@example.com"))
	require.Equal(t, []events.EventType{events.EventPasswordResetRequested}, f.events.types())
	payload, ok := f.events.published[0].Payload.(events.PasswordResetRequestedPayload)
	require.True(t, ok)

	link, err := url.Parse(payload.ResetURL)
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", link.Host)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, token, "new-password"))
	_, _, _, err = f.svc.LoginStaff(ctx, "ann@example.com", "new-password")
	require.NoError(t, err)

	err = f.svc.ConfirmPasswordReset(ctx, token, "another-password")
	code, _ := domainCode(t, err)
	assert.Equal(t, apperrors.CodeValidationFailed, code)
}

func TestRequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "nobody@example.com"))

	assert.Empty(t, f.events.types())
	assert.Empty(t, f.resets.pending)
}

func TestChangePassword_VerifiesCurrent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user, _, _, err := f.svc.RegisterUser(ctx, RegisterUserInput{Name: "Guest", Email: "g@example.com", Password: "first-pass"})
	require.NoError(t, err)
	subject := AuthSubject{Type: domain.SubjectTypeUser, ID: user.ID}

	err = f.svc.ChangePassword(ctx, subject, "not-it", "second-pass")
	code, _ := domainCode(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, code)

	require.NoError(t, f.svc.ChangePassword(ctx, subject, "first-pass", "second-pass"))
	_, _, _, err = f.svc.LoginUser(ctx, "g@example.com", "second-pass")
	require.NoError(t, err)
}

func TestLoginStaff_RehashesOutdatedCost(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	old, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost+1)
	require.NoError(t, err)
	f.staff["s-1"] = &domain.StaffMember{ID: "s-1", Email: "ann@example.com", PasswordHash: string(old), Role: domain.StaffRoleTherapist, Active: true}

	_, _, _, err = f.svc.LoginStaff(ctx, "ann@example.com", "s3cret-pass")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(f.staff["s-1"].PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	_, _, _, err = f.svc.LoginStaff(ctx, "ann@example.com", "s3cret-pass")
	assert.NoError(t, err)
}

func TestLoginStaff_WithoutPasswordIsInvalidCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.staff["s-1"] = &domain.StaffMember{ID: "s-1", Email: "ann@example.com", Role: domain.StaffRoleTherapist, Active: true}

	_, _, _, err := f.svc.LoginStaff(context.Background(), "ann@example.com", "")
	code, _ := domainCode(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, code)
}
