package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// AssignmentHistoryRepository stores the append-only assignment audit trail.
type AssignmentHistoryRepository interface {
	Create(ctx context.Context, record *domain.AssignmentRecord) error
	ListByGrievance(ctx context.Context, grievanceID string) ([]domain.AssignmentRecord, error)
	DeclinedStaffIDs(ctx context.Context, grievanceID string) ([]string, error)
}

type assignmentHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentHistoryRepository builds repository.
func NewAssignmentHistoryRepository(pool *pgxpool.Pool) AssignmentHistoryRepository {
	return &assignmentHistoryRepository{pool: pool}
}

func (r *assignmentHistoryRepository) Create(ctx context.Context, record *domain.AssignmentRecord) error {
	const query = `
        INSERT INTO assignment_history (grievance_id, staff_id, outcome, reason)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		record.GrievanceID,
		record.StaffID,
		record.Outcome,
		record.Reason,
	).Scan(&record.ID, &record.CreatedAt)
}

func (r *assignmentHistoryRepository) ListByGrievance(ctx context.Context, grievanceID string) ([]domain.AssignmentRecord, error) {
	const query = `
        SELECT id, grievance_id, staff_id, outcome, reason, created_at
        FROM assignment_history WHERE grievance_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, grievanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssignmentRecord
	for rows.Next() {
		var record domain.AssignmentRecord
		if err := rows.Scan(
			&record.ID,
			&record.GrievanceID,
			&record.StaffID,
			&record.Outcome,
			&record.Reason,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

func (r *assignmentHistoryRepository) DeclinedStaffIDs(ctx context.Context, grievanceID string) ([]string, error) {
	const query = `
        SELECT DISTINCT staff_id FROM assignment_history
        WHERE grievance_id=$1 AND outcome=$2`
	rows, err := r.pool.Query(ctx, query, grievanceID, domain.OutcomeDeclined)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}
