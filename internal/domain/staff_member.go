package domain

import "time"

// StaffRole enumerates staff roles. Eligibility requires an exact match.
type StaffRole string

const (
	StaffRoleTherapist StaffRole = "THERAPIST"
	StaffRoleDriver    StaffRole = "DRIVER"
	StaffRoleManager   StaffRole = "MANAGER"
	StaffRoleAdmin     StaffRole = "ADMIN"
)

// StaffRoles lists every known role.
var StaffRoles = []StaffRole{StaffRoleTherapist, StaffRoleDriver, StaffRoleManager, StaffRoleAdmin}

// Valid reports whether r is a known role.
func (r StaffRole) Valid() bool {
	for _, known := range StaffRoles {
		if r == known {
			return true
		}
	}
	return false
}

// StaffMember is a staff record: who the person is, where they work, what they can do
// and when they are available.
type StaffMember struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"`
	Role         StaffRole      `json:"role"`
	BranchIDs    []string       `json:"branch_ids"`
	Skills       []string       `json:"skills"`
	Active       bool           `json:"active"`
	Availability []Availability `json:"availability,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	// Workload is derived from committed bookings; it is never stored on the row.
	CurrentAssignments int          `json:"current_assignments"`
	Busy               []TimeWindow `json:"busy,omitempty"`
}

// HasSkill reports whether the staff member carries the given skill tag.
func (s *StaffMember) HasSkill(tag string) bool {
	for _, skill := range s.Skills {
		if skill == tag {
			return true
		}
	}
	return false
}

// WorksAt reports whether the staff member is attached to branchID.
func (s *StaffMember) WorksAt(branchID string) bool {
	for _, id := range s.BranchIDs {
		if id == branchID {
			return true
		}
	}
	return false
}
