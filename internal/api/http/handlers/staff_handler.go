package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-assignment/internal/api/dto"
	"github.com/spec-kit/staff-assignment/internal/auth"
	"github.com/spec-kit/staff-assignment/internal/domain"
	"github.com/spec-kit/staff-assignment/internal/service"
	"github.com/spec-kit/staff-assignment/internal/validation"
	apperrors "github.com/spec-kit/staff-assignment/pkg/util/errorutil"
)

// StaffHandler exposes staff auth and staff administration endpoints.
type StaffHandler struct {
	authService *service.AuthService
	orgService  *service.StaffService
	validator   *validation.Validator
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService, orgService *service.StaffService, v *validation.Validator) *StaffHandler {
	return &StaffHandler{authService: authService, orgService: orgService, validator: v}
}

// Login handles POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}

	staff, token, exp, err := h.authService.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": staffResponse(staff),
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// RequestPasswordReset handles POST /auth/password/reset/request. The answer
// is the same whether or not the email is known.
func (h *StaffHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	if err := h.authService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"status": "reset_requested"}})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *StaffHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	if err := h.authService.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password_reset"}})
}

// ChangePassword handles POST /auth/password/change.
func (h *StaffHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.PasswordChangeRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}

	subject := service.AuthSubject{Type: principal.SubjectType, ID: principal.SubjectID()}
	if err := h.authService.ChangePassword(c.UserContext(), subject, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "password_changed"}})
}

// CreateStaff handles POST /admin/staff.
func (h *StaffHandler) CreateStaff(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffCreateRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	staff, err := h.orgService.CreateStaffMember(c.UserContext(), admin, service.StaffInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		BranchIDs: req.BranchIDs,
		Skills:    req.Skills,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": staffResponse(staff)})
}

// ImportStaff handles POST /admin/staff/import.
func (h *StaffHandler) ImportStaff(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffImportRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	result, err := h.orgService.ImportStaff(c.UserContext(), admin, req.Staff)
	if err != nil {
		return err
	}
	created := make([]dto.StaffResponse, 0, len(result.Created))
	for i := range result.Created {
		created = append(created, staffResponse(&result.Created[i]))
	}
	status := http.StatusCreated
	if len(created) == 0 {
		status = http.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(fiber.Map{"data": fiber.Map{
		"created": created,
		"failed":  result.Failed,
	}})
}

// ListStaff handles GET /admin/staff.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	list, err := h.orgService.ListStaffMembers(c.UserContext(), admin, parseStaffListFilters(c))
	if err != nil {
		return err
	}
	resp := make([]dto.StaffResponse, 0, len(list))
	for i := range list {
		resp = append(resp, staffResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetStaff handles GET /admin/staff/:id.
func (h *StaffHandler) GetStaff(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	staff, err := h.orgService.GetStaffMemberByID(c.UserContext(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(staff)})
}

// UpdateStaff handles PUT /admin/staff/:id.
func (h *StaffHandler) UpdateStaff(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.StaffUpdateRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	updated, err := h.orgService.UpdateStaffMember(c.UserContext(), admin, c.Params("id"), service.StaffUpdateInput{
		Name:      req.Name,
		Email:     req.Email,
		Role:      req.Role,
		BranchIDs: req.BranchIDs,
		Skills:    req.Skills,
		Active:    req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(updated)})
}

// SetSkills handles PUT /admin/staff/:id/skills.
func (h *StaffHandler) SetSkills(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SkillsRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	skills, err := h.orgService.SetSkills(c.UserContext(), admin, c.Params("id"), req.Skills)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"staff_id": c.Params("id"), "skills": skills}})
}

// ListAvailability handles GET /admin/staff/:id/availability.
func (h *StaffHandler) ListAvailability(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	windows, err := h.orgService.ListAvailability(c.UserContext(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	if windows == nil {
		windows = []domain.Availability{}
	}
	return c.JSON(fiber.Map{"data": windows})
}

// AddAvailability handles POST /admin/staff/:id/availability.
func (h *StaffHandler) AddAvailability(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AvailabilityRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	staffID := c.Params("id")
	window, err := h.orgService.AddAvailability(c.UserContext(), admin, staffID, req.ToDomain(staffID))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": window})
}

// DeleteAvailability handles DELETE /admin/staff/:id/availability/:windowId.
func (h *StaffHandler) DeleteAvailability(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.orgService.DeleteAvailability(c.UserContext(), admin, c.Params("id"), c.Params("windowId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseStaffListFilters(c *fiber.Ctx) service.StaffListFilters {
	var filters service.StaffListFilters
	if roleStr := c.Query("role"); roleStr != "" {
		role := domain.StaffRole(roleStr)
		filters.Role = &role
	}
	if branchID := c.Query("branch_id"); branchID != "" {
		filters.BranchID = &branchID
	}
	if c.Query("active") != "" {
		active := parseBoolQuery(c, "active", true)
		filters.Active = &active
	}
	filters.Limit, filters.Offset = parsePage(c, 50)
	return filters
}

func staffResponse(staff *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		ID:           staff.ID,
		Name:         staff.Name,
		Email:        staff.Email,
		Role:         staff.Role,
		BranchIDs:    nonNilStrings(staff.BranchIDs),
		Skills:       nonNilStrings(staff.Skills),
		Active:       staff.Active,
		Availability: staff.Availability,
	}
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
