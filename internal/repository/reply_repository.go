package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
)

// rowQuerier is satisfied by both pgxpool.Pool and pgx.Tx, so inserts can run
// standalone or inside a caller-owned transaction.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ReplyRepository manages the append-only ticket thread.
type ReplyRepository interface {
	Create(ctx context.Context, reply *domain.Reply) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Reply, error)
}

type replyRepository struct {
	pool *pgxpool.Pool
}

// NewReplyRepository builds repository.
func NewReplyRepository(pool *pgxpool.Pool) ReplyRepository {
	return &replyRepository{pool: pool}
}

func (r *replyRepository) Create(ctx context.Context, reply *domain.Reply) error {
	return insertReply(ctx, r.pool, reply)
}

func insertReply(ctx context.Context, q rowQuerier, reply *domain.Reply) error {
	const query = `
        INSERT INTO ticket_replies (ticket_id, sender_id, is_staff_reply, message)
        VALUES ($1,$2,$3,$4)
        RETURNING id, seq, sent_at`
	return q.QueryRow(ctx, query,
		reply.TicketID,
		reply.SenderID,
		reply.IsStaffReply,
		reply.Message,
	).Scan(&reply.ID, &reply.Seq, &reply.SentAt)
}

func (r *replyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Reply, error) {
	// total order: sent_at, insertion sequence breaking ties
	const query = `
        SELECT id, ticket_id, sender_id, is_staff_reply, message, sent_at, seq
        FROM ticket_replies WHERE ticket_id=$1 ORDER BY sent_at ASC, seq ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Reply
	for rows.Next() {
		var reply domain.Reply
		if err := rows.Scan(
			&reply.ID,
			&reply.TicketID,
			&reply.SenderID,
			&reply.IsStaffReply,
			&reply.Message,
			&reply.SentAt,
			&reply.Seq,
		); err != nil {
			return nil, err
		}
		result = append(result, reply)
	}
	return result, rows.Err()
}
