package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// MessageRepository manages ticket thread messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error)
	MarkRead(ctx context.Context, messageID string) error
	MarkThreadRead(ctx context.Context, ticketID string, fromAdmin bool) error
	CountUnread(ctx context.Context, ticketID string, fromAdmin bool) (int, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (ticket_id, sender_id, body, is_admin, is_read, attachments)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.SenderID,
		msg.Body,
		msg.IsAdmin,
		msg.IsRead,
		msg.Attachments,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	const query = `
        SELECT id, ticket_id, sender_id, body, is_admin, is_read, attachments, created_at
        FROM messages WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.SenderID,
			&msg.Body,
			&msg.IsAdmin,
			&msg.IsRead,
			&msg.Attachments,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

// MarkRead flips the read flag. The update matches the row whether or not
// it was already read, keeping the operation idempotent.
func (r *messageRepository) MarkRead(ctx context.Context, messageID string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE messages SET is_read=TRUE WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkThreadRead marks all messages from one side of the conversation as
// read, used when a participant opens the thread.
func (r *messageRepository) MarkThreadRead(ctx context.Context, ticketID string, fromAdmin bool) error {
	const query = `UPDATE messages SET is_read=TRUE WHERE ticket_id=$1 AND is_admin=$2 AND is_read=FALSE`
	_, err := r.pool.Exec(ctx, query, ticketID, fromAdmin)
	return err
}

func (r *messageRepository) CountUnread(ctx context.Context, ticketID string, fromAdmin bool) (int, error) {
	const query = `SELECT COUNT(*) FROM messages WHERE ticket_id=$1 AND is_admin=$2 AND is_read=FALSE`
	var count int
	if err := r.pool.QueryRow(ctx, query, ticketID, fromAdmin).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
