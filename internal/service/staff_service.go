package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/staff-assignment/internal/auth"
	"github.com/spec-kit/staff-assignment/internal/cache"
	"github.com/spec-kit/staff-assignment/internal/config"
	"github.com/spec-kit/staff-assignment/internal/domain"
	"github.com/spec-kit/staff-assignment/internal/repository"
	"github.com/spec-kit/staff-assignment/internal/validation"
	apperrors "github.com/spec-kit/staff-assignment/pkg/util/errorutil"
)

// StaffService manages branches, staff members and their availability.
type StaffService struct {
	branches     repository.BranchRepository
	staff        repository.StaffRepository
	availability repository.AvailabilityRepository
	rosters      *cache.RosterCache
	validator    *validation.Validator
	bcryptCost   int
}

// OrgDependencies encapsulates repositories required for org management.
type OrgDependencies struct {
	BranchRepo       repository.BranchRepository
	StaffRepo        repository.StaffRepository
	AvailabilityRepo repository.AvailabilityRepository
	Rosters          *cache.RosterCache
	Validator        *validation.Validator
}

// BranchInput carries branch fields.
type BranchInput struct {
	Name     string
	Address  string
	Timezone string
	IsActive *bool
}

// StaffInput describes a new staff account.
type StaffInput struct {
	Name      string
	Email     string
	Password  string
	Role      domain.StaffRole
	BranchIDs []string
	Skills    []string
}

// StaffUpdateInput holds optional staff changes; nil fields stay untouched.
type StaffUpdateInput struct {
	Name      *string
	Email     *string
	Role      *domain.StaffRole
	BranchIDs []string
	Skills    []string
	Active    *bool
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	Role     *domain.StaffRole
	BranchID *string
	Active   *bool
	Limit    int
	Offset   int
}

// NewStaffService constructs the service.
func NewStaffService(cfg config.Config, deps OrgDependencies) *StaffService {
	v := deps.Validator
	if v == nil {
		v = validation.MustNew()
	}
	return &StaffService{
		branches:     deps.BranchRepo,
		staff:        deps.StaffRepo,
		availability: deps.AvailabilityRepo,
		rosters:      deps.Rosters,
		validator:    v,
		bcryptCost:   cfg.Auth.BcryptCost,
	}
}

// CreateBranch creates a new branch.
func (s *StaffService) CreateBranch(ctx context.Context, actor *domain.StaffMember, input BranchInput) (*domain.Branch, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	branch := &domain.Branch{IsActive: true}
	if err := applyBranchInput(branch, input); err != nil {
		return nil, err
	}
	if err := s.branches.Create(ctx, branch); err != nil {
		return nil, apperrors.MapError(err)
	}
	return branch, nil
}

// ListBranches returns branches, active only unless includeInactive.
func (s *StaffService) ListBranches(ctx context.Context, actor *domain.StaffMember, includeInactive bool) ([]domain.Branch, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	branches, err := s.branches.List(ctx, !includeInactive)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return branches, nil
}

// GetBranchByID fetches a branch.
func (s *StaffService) GetBranchByID(ctx context.Context, actor *domain.StaffMember, id string) (*domain.Branch, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	branch, err := s.branches.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "branch", map[string]any{"branch_id": id})
	}
	return branch, nil
}

// UpdateBranch modifies branch metadata.
func (s *StaffService) UpdateBranch(ctx context.Context, actor *domain.StaffMember, id string, input BranchInput) (*domain.Branch, error) {
	branch, err := s.GetBranchByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := applyBranchInput(branch, input); err != nil {
		return nil, err
	}
	if err := s.branches.Update(ctx, branch); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.rosters.Invalidate(ctx)
	return branch, nil
}

func applyBranchInput(branch *domain.Branch, input BranchInput) error {
	if name := strings.TrimSpace(input.Name); name != "" {
		branch.Name = name
	}
	if input.Address != "" {
		branch.Address = strings.TrimSpace(input.Address)
	}
	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			return apperrors.NewValidationError("validation failed", map[string]any{"timezone": "unknown timezone"})
		}
		branch.Timezone = input.Timezone
	}
	if branch.Timezone == "" {
		branch.Timezone = "UTC"
	}
	if input.IsActive != nil {
		branch.IsActive = *input.IsActive
	}
	if branch.Name == "" {
		return apperrors.NewValidationError("validation failed", map[string]any{"name": "is required"})
	}
	return nil
}

// CreateStaffMember adds a new staff account.
func (s *StaffService) CreateStaffMember(ctx context.Context, actor *domain.StaffMember, input StaffInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, err := s.createStaff(ctx, input, true)
	if err != nil {
		return nil, err
	}
	s.rosters.Invalidate(ctx)
	return staff, nil
}

func (s *StaffService) createStaff(ctx context.Context, input StaffInput, active bool) (*domain.StaffMember, error) {
	email := normalizeEmail(input.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{"role": "unknown role"})
	}
	if err := s.ensureBranches(ctx, input.BranchIDs); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	staff := &domain.StaffMember{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		BranchIDs:    input.BranchIDs,
		Skills:       normalizeTags(input.Skills),
		Active:       active,
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// ListStaffMembers lists staff with filters.
func (s *StaffService) ListStaffMembers(ctx context.Context, actor *domain.StaffMember, filters StaffListFilters) ([]domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, err := s.staff.List(ctx, repository.StaffFilter{
		Role:     filters.Role,
		BranchID: filters.BranchID,
		Active:   filters.Active,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return staff, nil
}

// GetStaffMemberByID fetches staff together with availability.
func (s *StaffService) GetStaffMemberByID(ctx context.Context, actor *domain.StaffMember, id string) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "staff", map[string]any{"staff_id": id})
	}
	windows, err := s.availability.ListByStaff(ctx, []string{staff.ID})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	staff.Availability = windows
	return staff, nil
}

// UpdateStaffMember updates staff details.
func (s *StaffService) UpdateStaffMember(ctx context.Context, actor *domain.StaffMember, staffID string, input StaffUpdateInput) (*domain.StaffMember, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, notFound(err, "staff", map[string]any{"staff_id": staffID})
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email != staff.Email {
			if err := s.ensureEmailFree(ctx, email, staff.ID); err != nil {
				return nil, err
			}
			staff.Email = email
		}
	}
	if input.Name != nil {
		staff.Name = strings.TrimSpace(*input.Name)
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperrors.NewValidationError("validation failed", map[string]any{"role": "unknown role"})
		}
		staff.Role = *input.Role
	}
	if input.BranchIDs != nil {
		if err := s.ensureBranches(ctx, input.BranchIDs); err != nil {
			return nil, err
		}
		staff.BranchIDs = input.BranchIDs
	}
	if input.Skills != nil {
		staff.Skills = normalizeTags(input.Skills)
	}
	if input.Active != nil {
		staff.Active = *input.Active
	}

	if err := s.staff.Update(ctx, staff); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.rosters.Invalidate(ctx)
	return staff, nil
}

// SetSkills replaces a staff member's skill tags.
func (s *StaffService) SetSkills(ctx context.Context, actor *domain.StaffMember, staffID string, skills []string) ([]string, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	normalized := normalizeTags(skills)
	if err := s.staff.SetSkills(ctx, staffID, normalized); err != nil {
		return nil, notFound(err, "staff", map[string]any{"staff_id": staffID})
	}
	s.rosters.Invalidate(ctx)
	return normalized, nil
}

// ListAvailability returns the availability windows of a staff member.
func (s *StaffService) ListAvailability(ctx context.Context, actor *domain.StaffMember, staffID string) ([]domain.Availability, error) {
	staff, err := s.GetStaffMemberByID(ctx, actor, staffID)
	if err != nil {
		return nil, err
	}
	return staff.Availability, nil
}

// AddAvailability stores a new availability window for staffID.
func (s *StaffService) AddAvailability(ctx context.Context, actor *domain.StaffMember, staffID string, window domain.Availability) (*domain.Availability, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.staff.GetByID(ctx, staffID); err != nil {
		return nil, notFound(err, "staff", map[string]any{"staff_id": staffID})
	}
	window.StaffID = staffID
	if err := window.Validate(); err != nil {
		return nil, apperrors.NewValidationError("invalid availability", map[string]any{"availability": err.Error()})
	}
	if err := s.availability.Create(ctx, &window); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.rosters.Invalidate(ctx)
	return &window, nil
}

// DeleteAvailability removes one availability window.
func (s *StaffService) DeleteAvailability(ctx context.Context, actor *domain.StaffMember, staffID, windowID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.availability.Delete(ctx, staffID, windowID); err != nil {
		return notFound(err, "availability", map[string]any{"staff_id": staffID, "availability_id": windowID})
	}
	s.rosters.Invalidate(ctx)
	return nil
}

func (s *StaffService) ensureEmailFree(ctx context.Context, email, ownerID string) error {
	existing, err := s.staff.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil && existing.ID != ownerID:
		return apperrors.NewConflict("staff email already exists", map[string]any{"email": email})
	case err != nil && !errors.Is(err, pgx.ErrNoRows):
		return apperrors.MapError(err)
	}
	return nil
}

func (s *StaffService) ensureBranches(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.branches.GetByID(ctx, id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewValidationError("validation failed", map[string]any{"branch_ids": "unknown branch " + id})
			}
			return apperrors.MapError(err)
		}
	}
	return nil
}
