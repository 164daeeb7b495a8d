package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// AccountType separates direct customers from hotel partners booking for guests.
type AccountType string

const (
	AccountTypeCustomer AccountType = "CUSTOMER"
	AccountTypeHotel    AccountType = "HOTEL"
)

// User is an account that places bookings.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	AccountType  AccountType
	BranchID     *string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
