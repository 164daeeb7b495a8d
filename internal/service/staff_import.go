package service

import (
	"context"
	"time"

	"github.com/spec-kit/staff-assignment/internal/domain"
	apperrors "github.com/spec-kit/staff-assignment/pkg/util/errorutil"
)

// StaffImportRecord is one loosely typed row of a bulk staff import. Rows are
// validated and converted here so nothing downstream sees unchecked data.
type StaffImportRecord struct {
	Name         string               `json:"name" validate:"required,max=200"`
	Email        string               `json:"email" validate:"required,email"`
	Password     string               `json:"password" validate:"required,min=8,max=72"`
	Role         string               `json:"role" validate:"required,staff_role"`
	BranchIDs    []string             `json:"branch_ids" validate:"omitempty,dive,uuid"`
	Skills       []string             `json:"skills" validate:"omitempty,dive,skill_tag"`
	Active       *bool                `json:"active"`
	Availability []AvailabilityRecord `json:"availability" validate:"omitempty,dive"`
}

// AvailabilityRecord is the import form of domain.Availability.
type AvailabilityRecord struct {
	Kind        string     `json:"kind" validate:"required,oneof=ONE_OFF WEEKLY"`
	StartsAt    *time.Time `json:"starts_at" validate:"required_if=Kind ONE_OFF"`
	EndsAt      *time.Time `json:"ends_at" validate:"required_if=Kind ONE_OFF"`
	Weekday     int        `json:"weekday" validate:"weekday"`
	StartMinute int        `json:"start_minute" validate:"min=0,max=1440"`
	EndMinute   int        `json:"end_minute" validate:"min=0,max=1440"`
	Timezone    string     `json:"timezone" validate:"omitempty,timezone"`
}

// ToDomain converts the record into an availability window for staffID.
func (r AvailabilityRecord) ToDomain(staffID string) domain.Availability {
	a := domain.Availability{
		StaffID:     staffID,
		Kind:        domain.AvailabilityKind(r.Kind),
		Weekday:     time.Weekday(r.Weekday),
		StartMinute: r.StartMinute,
		EndMinute:   r.EndMinute,
		Timezone:    r.Timezone,
	}
	if r.StartsAt != nil {
		a.StartsAt = r.StartsAt.UTC()
	}
	if r.EndsAt != nil {
		a.EndsAt = r.EndsAt.UTC()
	}
	return a
}

// ImportFailure reports a rejected row.
type ImportFailure struct {
	Index   int            `json:"index"`
	Email   string         `json:"email,omitempty"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ImportResult summarises a bulk import. Rows are independent: a bad row is
// reported and the rest still import.
type ImportResult struct {
	Created []domain.StaffMember `json:"created"`
	Failed  []ImportFailure      `json:"failed"`
}

// ImportStaff validates and creates each record.
func (s *StaffService) ImportStaff(ctx context.Context, actor *domain.StaffMember, records []StaffImportRecord) (*ImportResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	result := &ImportResult{Created: []domain.StaffMember{}, Failed: []ImportFailure{}}
	for i, record := range records {
		staff, err := s.importOne(ctx, record)
		if err != nil {
			de := apperrors.ToDomainError(err)
			result.Failed = append(result.Failed, ImportFailure{
				Index:   i,
				Email:   record.Email,
				Code:    de.Code,
				Message: de.Message,
				Details: de.Details,
			})
			continue
		}
		result.Created = append(result.Created, *staff)
	}
	if len(result.Created) > 0 {
		s.rosters.Invalidate(ctx)
	}
	return result, nil
}

func (s *StaffService) importOne(ctx context.Context, record StaffImportRecord) (*domain.StaffMember, error) {
	if err := s.validator.Struct(record); err != nil {
		return nil, err
	}
	windows := make([]domain.Availability, 0, len(record.Availability))
	for _, r := range record.Availability {
		w := r.ToDomain("")
		if err := w.Validate(); err != nil {
			return nil, apperrors.NewValidationError("invalid availability", map[string]any{"availability": err.Error()})
		}
		windows = append(windows, w)
	}

	active := true
	if record.Active != nil {
		active = *record.Active
	}
	staff, err := s.createStaff(ctx, StaffInput{
		Name:      record.Name,
		Email:     record.Email,
		Password:  record.Password,
		Role:      domain.StaffRole(record.Role),
		BranchIDs: record.BranchIDs,
		Skills:    record.Skills,
	}, active)
	if err != nil {
		return nil, err
	}
	for i := range windows {
		windows[i].StaffID = staff.ID
		if err := s.availability.Create(ctx, &windows[i]); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	staff.Availability = windows
	return staff, nil
}
