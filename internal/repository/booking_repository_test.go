package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/staff-assignment/internal/domain"
)

func TestUpdateError(t *testing.T) {
	other := errors.New("connection reset")

	assert.NoError(t, updateError(nil))
	assert.ErrorIs(t, updateError(pgx.ErrNoRows), ErrBookingChanged)
	assert.ErrorIs(t, updateError(&pgconn.PgError{Code: "23P01"}), ErrAssigneeOverlap)
	assert.ErrorIs(t, updateError(other), other)

	unique := &pgconn.PgError{Code: "23505"}
	assert.Same(t, unique, updateError(unique))
}

func TestVersionOf_CopiesAssignee(t *testing.T) {
	assignee := "s-1"
	b := &domain.Booking{Status: domain.BookingStatusAssigned, AssigneeID: &assignee}

	v := VersionOf(b)
	assignee = "s-2"
	b.Status = domain.BookingStatusPending

	assert.Equal(t, domain.BookingStatusAssigned, v.Status)
	assert.Equal(t, "s-1", *v.AssigneeID)
	assert.Nil(t, VersionOf(&domain.Booking{Status: domain.BookingStatusPending}).AssigneeID)
}
