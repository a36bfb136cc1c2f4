package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creatorlane/marketplace/internal/domain"
)

// TicketMessageRepository manages ticket thread messages.
type TicketMessageRepository interface {
	Create(ctx context.Context, msg *domain.TicketMessage) error
	ListByTicketChannel(ctx context.Context, ticketID string, channel domain.ChannelTag) ([]domain.TicketMessage, error)
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

func (r *ticketMessageRepository) Create(ctx context.Context, msg *domain.TicketMessage) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, sender_role, sender_id, channel_type, message_type, body, client_ref)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.SenderRole,
		msg.SenderID,
		msg.EffectiveChannel(),
		msg.MessageType,
		msg.Body,
		msg.ClientRef,
	).Scan(&msg.ID, &msg.CreatedAt)
}

// ListByTicketChannel returns one logical sub-thread. System messages are
// visible on both threads, so they are always included.
func (r *ticketMessageRepository) ListByTicketChannel(ctx context.Context, ticketID string, channel domain.ChannelTag) ([]domain.TicketMessage, error) {
	const query = `
        SELECT id, ticket_id, sender_role, sender_id, channel_type, message_type, body, client_ref, created_at
        FROM ticket_messages
        WHERE ticket_id=$1 AND (channel_type=$2 OR sender_role='system')
        ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID, channel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTicketMessages(rows)
}

func scanTicketMessages(rows pgx.Rows) ([]domain.TicketMessage, error) {
	var result []domain.TicketMessage
	for rows.Next() {
		var msg domain.TicketMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.SenderRole,
			&msg.SenderID,
			&msg.Channel,
			&msg.MessageType,
			&msg.Body,
			&msg.ClientRef,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
