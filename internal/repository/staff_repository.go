package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// StaffRepository handles persistence for department officials.
type StaffRepository interface {
	Create(ctx context.Context, staff *domain.StaffMember) error
	Update(ctx context.Context, staff *domain.StaffMember) error
	GetByID(ctx context.Context, id string) (*domain.StaffMember, error)
	List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error)
	CountByDepartment(ctx context.Context, dept domain.Department) (int64, error)
	AdjustActiveCases(ctx context.Context, id string, delta int) error
	TouchLastAssignment(ctx context.Context, id string) error
}

// StaffFilter defines query params for staff listing. Results are ordered for
// candidate selection: lowest active case count first, ties broken by the most
// stale last assignment so nobody starves.
type StaffFilter struct {
	Department *domain.Department
	Available  *bool
	Limit      int
	Offset     int
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
        INSERT INTO staff_members (name, email, department, role, available, active_case_count, last_assignment_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		staff.Name,
		staff.Email,
		staff.Department,
		staff.Role,
		staff.Available,
		staff.ActiveCaseCount,
		staff.LastAssignmentAt,
	).Scan(&staff.ID, &staff.CreatedAt, &staff.UpdatedAt)
}

func (r *staffRepository) Update(ctx context.Context, staff *domain.StaffMember) error {
	const query = `
        UPDATE staff_members
        SET name=$1, email=$2, role=$3, available=$4, active_case_count=$5, last_assignment_at=$6, updated_at=NOW()
        WHERE id=$7`

	cmd, err := r.pool.Exec(ctx, query,
		staff.Name,
		staff.Email,
		staff.Role,
		staff.Available,
		staff.ActiveCaseCount,
		staff.LastAssignmentAt,
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

func (r *staffRepository) GetByID(ctx context.Context, id string) (*domain.StaffMember, error) {
	const query = `
        SELECT id, name, email, department, role, available, active_case_count, last_assignment_at, created_at, updated_at
        FROM staff_members WHERE id=$1`

	var staff domain.StaffMember
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&staff.ID,
		&staff.Name,
		&staff.Email,
		&staff.Department,
		&staff.Role,
		&staff.Available,
		&staff.ActiveCaseCount,
		&staff.LastAssignmentAt,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) List(ctx context.Context, filter StaffFilter) ([]domain.StaffMember, error) {
	query := `
        SELECT id, name, email, department, role, available, active_case_count, last_assignment_at, created_at, updated_at
        FROM staff_members`
	args := []any{}
	clauses := []string{}

	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.Available != nil {
		args = append(args, *filter.Available)
		clauses = append(clauses, fmt.Sprintf("available=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY active_case_count ASC, last_assignment_at ASC NULLS FIRST, created_at ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffMember
	for rows.Next() {
		var staff domain.StaffMember
		if err := rows.Scan(
			&staff.ID,
			&staff.Name,
			&staff.Email,
			&staff.Department,
			&staff.Role,
			&staff.Available,
			&staff.ActiveCaseCount,
			&staff.LastAssignmentAt,
			&staff.CreatedAt,
			&staff.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, staff)
	}
	return result, rows.Err()
}

func (r *staffRepository) CountByDepartment(ctx context.Context, dept domain.Department) (int64, error) {
	const query = `SELECT COUNT(*) FROM staff_members WHERE department=$1`
	var count int64
	if err := r.pool.QueryRow(ctx, query, dept).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *staffRepository) AdjustActiveCases(ctx context.Context, id string, delta int) error {
	const query = `
        UPDATE staff_members
        SET active_case_count = GREATEST(active_case_count + $1, 0), updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, delta, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *staffRepository) TouchLastAssignment(ctx context.Context, id string) error {
	const query = `
        UPDATE staff_members SET last_assignment_at=NOW(), updated_at=NOW() WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
