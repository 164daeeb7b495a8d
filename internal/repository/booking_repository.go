package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-assignment/internal/domain"
)

const bookingSelect = `SELECT id, external_key, requester_user_id, branch_id, service_role, required_skills,
               starts_at, ends_at, guest_name, notes, assignee_staff_id, status, created_at, updated_at, cancelled_at
        FROM bookings`

// exclusionViolation is the SQLSTATE raised by bookings_assignee_no_overlap.
const exclusionViolation = "23P01"

var (
	// ErrBookingChanged means the row no longer holds the expected status and assignee.
	ErrBookingChanged = errors.New("booking changed since it was read")
	// ErrAssigneeOverlap means the assignee already holds an overlapping assigned booking.
	ErrAssigneeOverlap = errors.New("assignee has an overlapping booking")
)

// BookingVersion is the status and assignee an Update expects to replace.
type BookingVersion struct {
	Status     domain.BookingStatus
	AssigneeID *string
}

// VersionOf captures b's current version; call it before mutating b.
func VersionOf(b *domain.Booking) BookingVersion {
	v := BookingVersion{Status: b.Status}
	if b.AssigneeID != nil {
		id := *b.AssigneeID
		v.AssigneeID = &id
	}
	return v
}

// BookingFilter captures booking search parameters.
type BookingFilter struct {
	RequesterID *string
	BranchID    *string
	AssigneeID  *string
	Statuses    []domain.BookingStatus
	StartsFrom  *time.Time
	StartsTo    *time.Time
	Limit       int
	Offset      int
}

// BookingRepository encapsulates booking persistence.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	// Update writes booking only if the stored row still matches expected.
	Update(ctx context.Context, booking *domain.Booking, expected BookingVersion) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByExternalKey(ctx context.Context, key string) (*domain.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
	// ListCommittedByStaff returns assigned bookings of the given staff that overlap [from, to).
	ListCommittedByStaff(ctx context.Context, staffIDs []string, from, to time.Time) ([]domain.Booking, error)
	// CountCommittedByStaff counts assigned bookings per staff member ending after since.
	CountCommittedByStaff(ctx context.Context, staffIDs []string, since time.Time) (map[string]int, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

// NewBookingRepository instantiates repository.
func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

func (r *bookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	const query = `
        INSERT INTO bookings (external_key, requester_user_id, branch_id, service_role, required_skills,
            starts_at, ends_at, guest_name, notes, assignee_staff_id, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		booking.ExternalKey,
		booking.RequesterID,
		booking.BranchID,
		booking.ServiceRole,
		nonNil(booking.RequiredSkills),
		booking.StartsAt,
		booking.EndsAt,
		booking.GuestName,
		booking.Notes,
		booking.AssigneeID,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

func (r *bookingRepository) Update(ctx context.Context, booking *domain.Booking, expected BookingVersion) error {
	const query = `
        UPDATE bookings SET branch_id=$1, service_role=$2, required_skills=$3, starts_at=$4, ends_at=$5,
            guest_name=$6, notes=$7, assignee_staff_id=$8, status=$9, cancelled_at=$10, updated_at=NOW()
        WHERE id=$11 AND status=$12 AND assignee_staff_id IS NOT DISTINCT FROM $13::uuid
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		booking.BranchID,
		booking.ServiceRole,
		nonNil(booking.RequiredSkills),
		booking.StartsAt,
		booking.EndsAt,
		booking.GuestName,
		booking.Notes,
		booking.AssigneeID,
		booking.Status,
		booking.CancelledAt,
		booking.ID,
		expected.Status,
		expected.AssigneeID,
	).Scan(&booking.UpdatedAt)
	return updateError(err)
}

func updateError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrBookingChanged
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		return ErrAssigneeOverlap
	}
	return err
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return r.fetchSingle(ctx, bookingSelect+" WHERE id=$1", id)
}

func (r *bookingRepository) GetByExternalKey(ctx context.Context, key string) (*domain.Booking, error) {
	return r.fetchSingle(ctx, bookingSelect+" WHERE external_key=$1", key)
}

func (r *bookingRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Booking, error) {
	booking, err := scanBooking(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error) {
	query, args := bookingSQL(filter)
	return r.query(ctx, query, args)
}

func bookingSQL(filter BookingFilter) (string, []any) {
	q := selectFrom(bookingSelect)
	if filter.RequesterID != nil {
		q.Eq("requester_user_id", *filter.RequesterID)
	}
	if filter.BranchID != nil {
		q.Eq("branch_id", *filter.BranchID)
	}
	if filter.AssigneeID != nil {
		q.Eq("assignee_staff_id", *filter.AssigneeID)
	}
	if len(filter.Statuses) > 0 {
		q.In("status", toAny(filter.Statuses)...)
	}
	if filter.StartsFrom != nil {
		q.Cmp("starts_at", ">=", *filter.StartsFrom)
	}
	if filter.StartsTo != nil {
		q.Cmp("starts_at", "<", *filter.StartsTo)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	return q.OrderBy("starts_at", true).Page(limit, filter.Offset).SQL()
}

func (r *bookingRepository) ListCommittedByStaff(ctx context.Context, staffIDs []string, from, to time.Time) ([]domain.Booking, error) {
	if len(staffIDs) == 0 {
		return nil, nil
	}
	query, args := selectFrom(bookingSelect).
		Eq("status", domain.BookingStatusAssigned).
		In("assignee_staff_id", toAny(staffIDs)...).
		Cmp("starts_at", "<", to).
		Cmp("ends_at", ">", from).
		OrderBy("starts_at", false).
		SQL()
	return r.query(ctx, query, args)
}

func (r *bookingRepository) CountCommittedByStaff(ctx context.Context, staffIDs []string, since time.Time) (map[string]int, error) {
	counts := make(map[string]int, len(staffIDs))
	if len(staffIDs) == 0 {
		return counts, nil
	}
	const query = `
        SELECT assignee_staff_id::text, COUNT(*)
        FROM bookings
        WHERE status=$1 AND assignee_staff_id::text = ANY($2::text[]) AND ends_at > $3
        GROUP BY assignee_staff_id`
	rows, err := r.pool.Query(ctx, query, domain.BookingStatusAssigned, staffIDs, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

func (r *bookingRepository) query(ctx context.Context, query string, args []any) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, booking)
	}
	return result, rows.Err()
}

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var booking domain.Booking
	err := row.Scan(
		&booking.ID,
		&booking.ExternalKey,
		&booking.RequesterID,
		&booking.BranchID,
		&booking.ServiceRole,
		&booking.RequiredSkills,
		&booking.StartsAt,
		&booking.EndsAt,
		&booking.GuestName,
		&booking.Notes,
		&booking.AssigneeID,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.CancelledAt,
	)
	return booking, err
}
