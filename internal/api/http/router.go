package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-assignment/internal/api/http/handlers"
	"github.com/spec-kit/staff-assignment/internal/auth"
	"github.com/spec-kit/staff-assignment/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Staff          *handlers.StaffHandler
	Branches       *handlers.BranchesHandler
	Bookings       *handlers.BookingsHandler
	Dispatch       *handlers.DispatchHandler
	Assignments    *handlers.AssignmentsHandler
	AuthMiddleware fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)

	authGroup.Post("/staff/login", cfg.Staff.Login)
	authGroup.Post("/password/reset/request", cfg.Staff.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Staff.ConfirmPasswordReset)

	protected := authGroup.Group("", cfg.AuthMiddleware, auth.RequireAnyRole())
	protected.Post("/password/change", cfg.Staff.ChangePassword)

	admin := app.Group("/admin", cfg.AuthMiddleware, auth.RequireStaffRole(domain.StaffRoleAdmin))
	admin.Post("/branches", cfg.Branches.CreateBranch)
	admin.Get("/branches", cfg.Branches.ListBranches)
	admin.Get("/branches/:id", cfg.Branches.GetBranch)
	admin.Put("/branches/:id", cfg.Branches.UpdateBranch)
	admin.Post("/staff/import", cfg.Staff.ImportStaff)
	admin.Post("/staff", cfg.Staff.CreateStaff)
	admin.Get("/staff", cfg.Staff.ListStaff)
	admin.Get("/staff/:id", cfg.Staff.GetStaff)
	admin.Put("/staff/:id", cfg.Staff.UpdateStaff)
	admin.Put("/staff/:id/skills", cfg.Staff.SetSkills)
	admin.Get("/staff/:id/availability", cfg.Staff.ListAvailability)
	admin.Post("/staff/:id/availability", cfg.Staff.AddAvailability)
	admin.Delete("/staff/:id/availability/:windowId", cfg.Staff.DeleteAvailability)

	bookings := app.Group("/bookings", cfg.AuthMiddleware, auth.RequireUser())
	bookings.Post("/", cfg.Bookings.CreateBooking)
	bookings.Get("/", cfg.Bookings.ListBookings)
	bookings.Get("/:id", cfg.Bookings.GetBooking)
	bookings.Post("/:id/cancel", cfg.Bookings.CancelBooking)

	dispatch := app.Group("/dispatch", cfg.AuthMiddleware, auth.RequireStaffRole(domain.StaffRoleManager, domain.StaffRoleAdmin))
	dispatch.Post("/eligible-staff", cfg.Dispatch.EligibleStaff)
	dispatch.Get("/bookings/:id/candidates", cfg.Dispatch.Candidates)
	dispatch.Post("/bookings/:id/assign", cfg.Dispatch.Assign)
	dispatch.Post("/bookings/:id/auto-assign", cfg.Dispatch.AutoAssign)
	dispatch.Post("/bookings/:id/unassign", cfg.Dispatch.Unassign)
	dispatch.Get("/bookings/:id/history", cfg.Dispatch.History)

	me := app.Group("/me", cfg.AuthMiddleware, auth.RequireStaffRole())
	me.Get("/assignments", cfg.Assignments.ListMine)
	me.Post("/assignments/:id/complete", cfg.Assignments.Complete)
}
