package assignment

import (
	"github.com/spec-kit/staff-assignment/internal/domain"
)

// Reason explains why a candidate was rejected.
type Reason string

const (
	ReasonEligible    Reason = ""
	ReasonInactive    Reason = "inactive"
	ReasonRole        Reason = "role_mismatch"
	ReasonSkills      Reason = "missing_skills"
	ReasonUnavailable Reason = "unavailable"
	ReasonBranch      Reason = "branch_mismatch"
	ReasonBusy        Reason = "busy"
)

// Ranked is an eligible staff member with its position in the result.
type Ranked struct {
	Staff *domain.StaffMember
	Score float64
	Rank  int
}

// Filter returns the candidates that satisfy c, ordered by policy.
// It does no I/O and never mutates candidates. No match yields an empty,
// non-nil slice.
func Filter(candidates []domain.StaffMember, c Constraint, policy Policy) ([]Ranked, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	required := dedupe(c.RequiredSkills)
	eligible := make([]Ranked, 0, len(candidates))
	for i := range candidates {
		staff := &candidates[i]
		if evaluate(staff, c, required) != ReasonEligible {
			continue
		}
		eligible = append(eligible, Ranked{Staff: staff})
	}

	policy.rank(eligible, c)
	return eligible, nil
}

// Explain reports why staff is or is not eligible for c.
func Explain(staff *domain.StaffMember, c Constraint) (Reason, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	return evaluate(staff, c, dedupe(c.RequiredSkills)), nil
}

func evaluate(staff *domain.StaffMember, c Constraint, required []string) Reason {
	switch {
	case !staff.Active:
		return ReasonInactive
	case staff.Role != c.Role:
		return ReasonRole
	case !hasAllSkills(staff, required):
		return ReasonSkills
	case c.Window != nil && !available(staff, *c.Window):
		return ReasonUnavailable
	case c.BranchID != "" && !staff.WorksAt(c.BranchID):
		return ReasonBranch
	case c.Window != nil && busy(staff, *c.Window):
		return ReasonBusy
	}
	return ReasonEligible
}

func hasAllSkills(staff *domain.StaffMember, required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(staff.Skills))
	for _, skill := range staff.Skills {
		have[skill] = struct{}{}
	}
	for _, skill := range required {
		if _, ok := have[skill]; !ok {
			return false
		}
	}
	return true
}

func available(staff *domain.StaffMember, window domain.TimeWindow) bool {
	for _, a := range staff.Availability {
		if a.Contains(window) {
			return true
		}
	}
	return false
}

func busy(staff *domain.StaffMember, window domain.TimeWindow) bool {
	for _, b := range staff.Busy {
		if b.Overlaps(window) {
			return true
		}
	}
	return false
}

func dedupe(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
