package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staff-assignment/internal/domain"
)

// BranchRepository manages persistence for branches.
type BranchRepository interface {
	Create(ctx context.Context, branch *domain.Branch) error
	Update(ctx context.Context, branch *domain.Branch) error
	GetByID(ctx context.Context, id string) (*domain.Branch, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Branch, error)
}

type branchRepository struct {
	pool *pgxpool.Pool
}

// NewBranchRepository constructs repository.
func NewBranchRepository(pool *pgxpool.Pool) BranchRepository {
	return &branchRepository{pool: pool}
}

func (r *branchRepository) Create(ctx context.Context, branch *domain.Branch) error {
	const query = `
        INSERT INTO branches (name, address, timezone, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		branch.Name,
		branch.Address,
		branch.Timezone,
		branch.IsActive,
	).Scan(&branch.ID, &branch.CreatedAt, &branch.UpdatedAt)
}

func (r *branchRepository) Update(ctx context.Context, branch *domain.Branch) error {
	const query = `
        UPDATE branches SET name=$1, address=$2, timezone=$3, is_active=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		branch.Name,
		branch.Address,
		branch.Timezone,
		branch.IsActive,
		branch.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *branchRepository) GetByID(ctx context.Context, id string) (*domain.Branch, error) {
	const query = `
        SELECT id, name, address, timezone, is_active, created_at, updated_at
        FROM branches WHERE id=$1`
	var branch domain.Branch
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&branch.ID,
		&branch.Name,
		&branch.Address,
		&branch.Timezone,
		&branch.IsActive,
		&branch.CreatedAt,
		&branch.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *branchRepository) List(ctx context.Context, activeOnly bool) ([]domain.Branch, error) {
	q := selectFrom(`SELECT id, name, address, timezone, is_active, created_at, updated_at FROM branches`)
	if activeOnly {
		q.Eq("is_active", true)
	}
	query, args := q.OrderBy("name", false).SQL()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Branch
	for rows.Next() {
		var branch domain.Branch
		if err := rows.Scan(&branch.ID, &branch.Name, &branch.Address, &branch.Timezone, &branch.IsActive, &branch.CreatedAt, &branch.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, branch)
	}
	return result, rows.Err()
}
