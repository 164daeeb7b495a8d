package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-assignment/internal/domain"
)

// AvailabilityRepository stores staff availability windows.
type AvailabilityRepository interface {
	Create(ctx context.Context, a *domain.Availability) error
	Delete(ctx context.Context, staffID, id string) error
	ListByStaff(ctx context.Context, staffIDs []string) ([]domain.Availability, error)
}

type availabilityRepository struct {
	pool *pgxpool.Pool
}

// NewAvailabilityRepository builds repository.
func NewAvailabilityRepository(pool *pgxpool.Pool) AvailabilityRepository {
	return &availabilityRepository{pool: pool}
}

func (r *availabilityRepository) Create(ctx context.Context, a *domain.Availability) error {
	const query = `
        INSERT INTO staff_availability (staff_id, kind, starts_at, ends_at, weekday, start_minute, end_minute, timezone)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	var startsAt, endsAt *time.Time
	if a.Kind == domain.AvailabilityOneOff {
		startsAt, endsAt = &a.StartsAt, &a.EndsAt
	}
	return r.pool.QueryRow(ctx, query,
		a.StaffID,
		a.Kind,
		startsAt,
		endsAt,
		int16(a.Weekday),
		a.StartMinute,
		a.EndMinute,
		a.Timezone,
	).Scan(&a.ID, &a.CreatedAt)
}

func (r *availabilityRepository) Delete(ctx context.Context, staffID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM staff_availability WHERE id=$1 AND staff_id=$2`, id, staffID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *availabilityRepository) ListByStaff(ctx context.Context, staffIDs []string) ([]domain.Availability, error) {
	if len(staffIDs) == 0 {
		return nil, nil
	}
	const query = `
        SELECT id, staff_id, kind, starts_at, ends_at, weekday, start_minute, end_minute, timezone, created_at
        FROM staff_availability WHERE staff_id::text = ANY($1::text[])
        ORDER BY staff_id, created_at`
	rows, err := r.pool.Query(ctx, query, staffIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Availability
	for rows.Next() {
		var (
			a                domain.Availability
			startsAt, endsAt *time.Time
			weekday          int16
		)
		if err := rows.Scan(
			&a.ID,
			&a.StaffID,
			&a.Kind,
			&startsAt,
			&endsAt,
			&weekday,
			&a.StartMinute,
			&a.EndMinute,
			&a.Timezone,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		if startsAt != nil {
			a.StartsAt = *startsAt
		}
		if endsAt != nil {
			a.EndsAt = *endsAt
		}
		a.Weekday = time.Weekday(weekday)
		result = append(result, a)
	}
	return result, rows.Err()
}
