package domain

import "time"

// BookingStatus enumerates lifecycle states for bookings.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusAssigned  BookingStatus = "ASSIGNED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Committed reports whether the booking still occupies its assignee's time.
func (s BookingStatus) Committed() bool {
	return s == BookingStatusAssigned
}

// Booking is a customer or hotel request for a service delivered by one staff member.
type Booking struct {
	ID             string
	ExternalKey    string
	RequesterID    string
	BranchID       string
	ServiceRole    StaffRole
	RequiredSkills []string
	StartsAt       time.Time
	EndsAt         time.Time
	GuestName      string
	Notes          string
	AssigneeID     *string
	Status         BookingStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CancelledAt    *time.Time
}

// Window returns the booked time span.
func (b *Booking) Window() TimeWindow {
	return TimeWindow{Start: b.StartsAt, End: b.EndsAt}
}
