package domain

import "time"

// Branch is a physical location staff are attached to (spa, hotel partner, depot).
type Branch struct {
	ID        string
	Name      string
	Address   string
	Timezone  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
