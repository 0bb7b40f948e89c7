package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// GrievanceFilter captures listing parameters.
type GrievanceFilter struct {
	PetitionerID      *string
	Department        *domain.Department
	AssignedOfficerID *string
	Statuses          []domain.GrievanceStatus
	Priorities        []domain.GrievancePriority
	Limit             int
	Offset            int
}

// DepartmentStatusCount is one row of the per-department queue statistics.
type DepartmentStatusCount struct {
	Department domain.Department
	Status     domain.GrievanceStatus
	Count      int64
}

// GrievanceRepository encapsulates grievance persistence.
type GrievanceRepository interface {
	Create(ctx context.Context, grievance *domain.Grievance) error
	Update(ctx context.Context, grievance *domain.Grievance) error
	GetByID(ctx context.Context, id string) (*domain.Grievance, error)
	ListWithFilter(ctx context.Context, filter GrievanceFilter) ([]domain.Grievance, error)
	ListPendingUnproposed(ctx context.Context, limit int) ([]domain.Grievance, error)
	CountByDepartmentStatus(ctx context.Context) ([]DepartmentStatusCount, error)
}

type grievanceRepository struct {
	pool *pgxpool.Pool
}

// NewGrievanceRepository instantiates repository.
func NewGrievanceRepository(pool *pgxpool.Pool) GrievanceRepository {
	return &grievanceRepository{pool: pool}
}

const grievanceColumns = `id, petitioner_id, department, subject, description, status, priority,
               expected_resolution, proposed_officer_id, assigned_officer_id, resolution,
               resolution_date, date_filed, updated_at`

func (r *grievanceRepository) Create(ctx context.Context, grievance *domain.Grievance) error {
	const query = `
        INSERT INTO grievances (petitioner_id, department, subject, description, status, priority,
            expected_resolution, proposed_officer_id, assigned_officer_id, resolution, resolution_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, date_filed, updated_at`
	return r.pool.QueryRow(ctx, query,
		grievance.PetitionerID,
		grievance.Department,
		grievance.Subject,
		grievance.Description,
		grievance.Status,
		grievance.Priority,
		grievance.ExpectedResolution,
		grievance.ProposedOfficerID,
		grievance.AssignedOfficerID,
		grievance.Resolution,
		grievance.ResolutionDate,
	).Scan(&grievance.ID, &grievance.DateFiled, &grievance.UpdatedAt)
}

func (r *grievanceRepository) Update(ctx context.Context, grievance *domain.Grievance) error {
	const query = `
        UPDATE grievances SET status=$1, priority=$2, proposed_officer_id=$3, assigned_officer_id=$4,
            resolution=$5, resolution_date=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		grievance.Status,
		grievance.Priority,
		grievance.ProposedOfficerID,
		grievance.AssignedOfficerID,
		grievance.Resolution,
		grievance.ResolutionDate,
		grievance.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *grievanceRepository) GetByID(ctx context.Context, id string) (*domain.Grievance, error) {
	query := fmt.Sprintf(`SELECT %s FROM grievances WHERE id=$1`, grievanceColumns)
	var grievance domain.Grievance
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&grievance.ID,
		&grievance.PetitionerID,
		&grievance.Department,
		&grievance.Subject,
		&grievance.Description,
		&grievance.Status,
		&grievance.Priority,
		&grievance.ExpectedResolution,
		&grievance.ProposedOfficerID,
		&grievance.AssignedOfficerID,
		&grievance.Resolution,
		&grievance.ResolutionDate,
		&grievance.DateFiled,
		&grievance.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &grievance, nil
}

func (r *grievanceRepository) ListWithFilter(ctx context.Context, filter GrievanceFilter) ([]domain.Grievance, error) {
	base := fmt.Sprintf(`SELECT %s FROM grievances`, grievanceColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.PetitionerID != nil {
		args = append(args, *filter.PetitionerID)
		clauses = append(clauses, fmt.Sprintf("petitioner_id=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.AssignedOfficerID != nil {
		args = append(args, *filter.AssignedOfficerID)
		clauses = append(clauses, fmt.Sprintf("assigned_officer_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrievances(rows)
}

func (r *grievanceRepository) ListPendingUnproposed(ctx context.Context, limit int) ([]domain.Grievance, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
        SELECT %s FROM grievances
        WHERE status=$1 AND proposed_officer_id IS NULL
        ORDER BY date_filed ASC LIMIT %d`, grievanceColumns, limit)
	rows, err := r.pool.Query(ctx, query, domain.GrievanceStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrievances(rows)
}

func (r *grievanceRepository) CountByDepartmentStatus(ctx context.Context) ([]DepartmentStatusCount, error) {
	const query = `
        SELECT department, status, COUNT(*)
        FROM grievances GROUP BY department, status ORDER BY department, status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DepartmentStatusCount
	for rows.Next() {
		var row DepartmentStatusCount
		if err := rows.Scan(&row.Department, &row.Status, &row.Count); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func scanGrievances(rows pgx.Rows) ([]domain.Grievance, error) {
	var result []domain.Grievance
	for rows.Next() {
		var grievance domain.Grievance
		if err := rows.Scan(
			&grievance.ID,
			&grievance.PetitionerID,
			&grievance.Department,
			&grievance.Subject,
			&grievance.Description,
			&grievance.Status,
			&grievance.Priority,
			&grievance.ExpectedResolution,
			&grievance.ProposedOfficerID,
			&grievance.AssignedOfficerID,
			&grievance.Resolution,
			&grievance.ResolutionDate,
			&grievance.DateFiled,
			&grievance.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, grievance)
	}
	return result, rows.Err()
}
