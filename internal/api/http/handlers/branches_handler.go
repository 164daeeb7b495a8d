package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-assignment/internal/api/dto"
	"github.com/spec-kit/staff-assignment/internal/domain"
	"github.com/spec-kit/staff-assignment/internal/service"
	"github.com/spec-kit/staff-assignment/internal/validation"
)

// BranchesHandler exposes branch administration.
type BranchesHandler struct {
	orgService *service.StaffService
	validator  *validation.Validator
}

// NewBranchesHandler constructs handler.
func NewBranchesHandler(orgService *service.StaffService, v *validation.Validator) *BranchesHandler {
	return &BranchesHandler{orgService: orgService, validator: v}
}

// CreateBranch handles POST /admin/branches.
func (h *BranchesHandler) CreateBranch(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.BranchRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	branch, err := h.orgService.CreateBranch(c.UserContext(), admin, branchInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": branchResponse(branch)})
}

// ListBranches handles GET /admin/branches.
func (h *BranchesHandler) ListBranches(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	branches, err := h.orgService.ListBranches(c.UserContext(), admin, parseBoolQuery(c, "include_inactive", false))
	if err != nil {
		return err
	}
	resp := make([]dto.BranchResponse, 0, len(branches))
	for i := range branches {
		resp = append(resp, branchResponse(&branches[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetBranch handles GET /admin/branches/:id.
func (h *BranchesHandler) GetBranch(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	branch, err := h.orgService.GetBranchByID(c.UserContext(), admin, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": branchResponse(branch)})
}

// UpdateBranch handles PUT /admin/branches/:id.
func (h *BranchesHandler) UpdateBranch(c *fiber.Ctx) error {
	admin, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.BranchRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	branch, err := h.orgService.UpdateBranch(c.UserContext(), admin, c.Params("id"), branchInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": branchResponse(branch)})
}

func branchInput(req dto.BranchRequest) service.BranchInput {
	return service.BranchInput{
		Name:     req.Name,
		Address:  req.Address,
		Timezone: req.Timezone,
		IsActive: req.IsActive,
	}
}

func branchResponse(branch *domain.Branch) dto.BranchResponse {
	return dto.BranchResponse{
		ID:        branch.ID,
		Name:      branch.Name,
		Address:   branch.Address,
		Timezone:  branch.Timezone,
		IsActive:  branch.IsActive,
		CreatedAt: branch.CreatedAt,
	}
}
