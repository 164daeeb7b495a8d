package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-assignment/internal/domain"
	apperrors "github.com/spec-kit/staff-assignment/pkg/util/errorutil"
)

func newRoleApp(p *Principal, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.SendStatus(de.HTTPStatus)
		},
	})
	app.Get("/", func(c *fiber.Ctx) error {
		if p != nil {
			WithPrincipal(c, p)
		}
		return c.Next()
	}, guard, func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func status(t *testing.T, app *fiber.App) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequireStaffRole(t *testing.T) {
	manager := &Principal{SubjectType: domain.SubjectTypeStaff, Staff: &domain.StaffMember{ID: "s-1", Role: domain.StaffRoleManager}}
	therapist := &Principal{SubjectType: domain.SubjectTypeStaff, Staff: &domain.StaffMember{ID: "s-2", Role: domain.StaffRoleTherapist}}
	user := &Principal{SubjectType: domain.SubjectTypeUser, User: &domain.User{ID: "u-1"}}

	guard := RequireStaffRole(domain.StaffRoleManager, domain.StaffRoleAdmin)
	assert.Equal(t, http.StatusNoContent, status(t, newRoleApp(manager, guard)))
	assert.Equal(t, http.StatusForbidden, status(t, newRoleApp(therapist, guard)))
	assert.Equal(t, http.StatusForbidden, status(t, newRoleApp(user, guard)))
	assert.Equal(t, http.StatusNoContent, status(t, newRoleApp(therapist, RequireStaffRole())))
}

func TestRequireUserAndAny(t *testing.T) {
	user := &Principal{SubjectType: domain.SubjectTypeUser, User: &domain.User{ID: "u-1"}}
	staff := &Principal{SubjectType: domain.SubjectTypeStaff, Staff: &domain.StaffMember{ID: "s-1"}}

	assert.Equal(t, http.StatusNoContent, status(t, newRoleApp(user, RequireUser())))
	assert.Equal(t, http.StatusForbidden, status(t, newRoleApp(staff, RequireUser())))
	assert.Equal(t, http.StatusUnauthorized, status(t, newRoleApp(nil, RequireAnyRole())))
	assert.Equal(t, http.StatusNoContent, status(t, newRoleApp(staff, RequireAnyRole())))
}
