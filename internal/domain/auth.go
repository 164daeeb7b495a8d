package domain

import "time"

// SubjectType differentiates account vs staff tokens.
type SubjectType string

const (
	SubjectTypeUser   SubjectType = "USER"
	SubjectTypeStaff  SubjectType = "STAFF"
	SubjectTypeSystem SubjectType = "SYSTEM"
)

// PasswordReset is a pending reset for a user or staff account.
type PasswordReset struct {
	Token       string      `json:"token"`
	SubjectType SubjectType `json:"subject_type"`
	SubjectID   string      `json:"subject_id"`
	Email       string      `json:"email"`
	ExpiresAt   time.Time   `json:"expires_at"`
}
