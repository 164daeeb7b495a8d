package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-assignment/internal/domain"
)

// ErrUnknownOrder is returned for an ordering column outside the whitelist.
var ErrUnknownOrder = errors.New("unknown order column")

const defaultCandidateLimit = 500

const staffSelect = `SELECT id, name, email, password_hash, role, branch_ids, skills, active_flag, created_at, updated_at
        FROM staff_members`

// StaffRepository handles persistence for staff members.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffMember) error
	Update(ctx context.Context, staff *domain.StaffMember) error
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error)
	ListCandidates(ctx context.Context, q CandidateQuery) ([]domain.StaffMember, error)
	SetSkills(ctx context.Context, id string, skills []string) error
}

// StaffFilter defines query params for staff listing.
type StaffFilter struct {
	Role     *domain.StaffRole
	BranchID *string
	Active   *bool
	Limit    int
	Offset   int
}

// CandidateQuery narrows the roster before the eligibility filter runs.
// Role is matched by equality, BranchIDs and IDs by set membership.
type CandidateQuery struct {
	Role       domain.StaffRole
	BranchIDs  []string
	IDs        []string
	ActiveOnly bool
	OrderBy    string
	Limit      int
	Offset     int
}

var candidateOrderColumns = map[string]string{
	"":           "",
	"id":         "",
	"name":       "name",
	"created_at": "created_at",
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

func (r *staffRepository) Create(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        INSERT INTO staff_members (name, email, password_hash, role, branch_ids, skills, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		staff.Name,
		staff.Email,
		staff.PasswordHash,
		staff.Role,
		nonNil(staff.BranchIDs),
		nonNil(staff.Skills),
		staff.Active,
	).Scan(&staff.ID, &staff.CreatedAt, &staff.UpdatedAt)
}

func (r *staffRepository) Update(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        UPDATE staff_members
        SET name=$1, email=$2, password_hash=$3, role=$4, branch_ids=$5, skills=$6, active_flag=$7, updated_at=NOW()
        WHERE id=$8`

	cmd, err := r.pool.Exec(ctx, query,
		staff.Name,
		staff.Email,
		staff.PasswordHash,
		staff.Role,
		nonNil(staff.BranchIDs),
		nonNil(staff.Skills),
		staff.Active,
		staff.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *staffRepository) SetSkills(ctx context.Context, id string, skills []string) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE staff_members SET skills=$1, updated_at=NOW() WHERE id=$2`,
		nonNil(skills), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	return r.fetchSingle(ctx, staffSelect+" WHERE id=$1", id)
}

func (r *staffRepository) GetByEmail(ctx context.Context, email string) (*domain.StaffMember, error) {
	return r.fetchSingle(ctx, staffSelect+" WHERE email=$1", email)
}

func (r *staffRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.StaffMember, error) {
	staff, err := scanStaff(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error) {
	q := selectFrom(staffSelect)
	if filter.Role != nil {
		q.Eq("role", *filter.Role)
	}
	if filter.BranchID != nil {
		q.Overlaps("branch_ids", []string{*filter.BranchID})
	}
	if filter.Active != nil {
		q.Eq("active_flag", *filter.Active)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query, args := q.OrderBy("created_at", true).Page(limit, filter.Offset).SQL()
	return r.query(ctx, query, args)
}

func (r *staffRepository) ListCandidates(ctx context.Context, cq CandidateQuery) ([]domain.StaffMember, error) {
	query, args, err := candidateSQL(cq)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, query, args)
}

func candidateSQL(cq CandidateQuery) (string, []any, error) {
	column, ok := candidateOrderColumns[cq.OrderBy]
	if !ok {
		return "", nil, ErrUnknownOrder
	}

	q := selectFrom(staffSelect).Eq("role", cq.Role)
	if cq.ActiveOnly {
		q.Eq("active_flag", true)
	}
	if len(cq.BranchIDs) > 0 {
		q.Overlaps("branch_ids", cq.BranchIDs)
	}
	if len(cq.IDs) > 0 {
		q.In("id", toAny(cq.IDs)...)
	}
	if column != "" {
		q.OrderBy(column, false)
	}
	limit := cq.Limit
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	query, args := q.OrderBy("id", false).Page(limit, cq.Offset).SQL()
	return query, args, nil
}

func (r *staffRepository) query(ctx context.Context, query string, args []any) ([]domain.StaffMember, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffMember
	for rows.Next() {
		staff, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, staff)
	}
	return result, rows.Err()
}

func scanStaff(row pgx.Row) (domain.StaffMember, error) {
	var staff domain.StaffMember
	err := row.Scan(
		&staff.ID,
		&staff.Name,
		&staff.Email,
		&staff.PasswordHash,
		&staff.Role,
		&staff.BranchIDs,
		&staff.Skills,
		&staff.Active,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	)
	return staff, err
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
