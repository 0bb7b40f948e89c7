package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// ChatMessageRepository manages grievance thread messages.
type ChatMessageRepository interface {
	Create(ctx context.Context, msg *domain.ChatMessage) error
	GetByID(ctx context.Context, id string) (*domain.ChatMessage, error)
	ListByGrievance(ctx context.Context, grievanceID string) ([]domain.ChatMessage, error)
	MarkRead(ctx context.Context, id string) error
}

type chatMessageRepository struct {
	pool *pgxpool.Pool
}

// NewChatMessageRepository builds repository.
func NewChatMessageRepository(pool *pgxpool.Pool) ChatMessageRepository {
	return &chatMessageRepository{pool: pool}
}

func (r *chatMessageRepository) Create(ctx context.Context, msg *domain.ChatMessage) error {
	const query = `
        INSERT INTO chat_messages (grievance_id, sender_kind, sender_id, content, read_flag)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.GrievanceID,
		msg.Sender.Kind,
		msg.Sender.ID,
		msg.Content,
		msg.Read,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *chatMessageRepository) GetByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	const query = `
        SELECT id, grievance_id, sender_kind, sender_id, content, read_flag, created_at
        FROM chat_messages WHERE id=$1`
	var msg domain.ChatMessage
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID,
		&msg.GrievanceID,
		&msg.Sender.Kind,
		&msg.Sender.ID,
		&msg.Content,
		&msg.Read,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *chatMessageRepository) ListByGrievance(ctx context.Context, grievanceID string) ([]domain.ChatMessage, error) {
	const query = `
        SELECT id, grievance_id, sender_kind, sender_id, content, read_flag, created_at
        FROM chat_messages WHERE grievance_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, grievanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.GrievanceID,
			&msg.Sender.Kind,
			&msg.Sender.ID,
			&msg.Content,
			&msg.Read,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

// MarkRead flips the read flag. Content stays immutable; this is the only
// column an update may touch.
func (r *chatMessageRepository) MarkRead(ctx context.Context, id string) error {
	const query = `UPDATE chat_messages SET read_flag=TRUE WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
