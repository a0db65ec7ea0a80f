package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"quickchat/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	ListConversation(ctx context.Context, userA, userB string) ([]domain.Message, error)
	MarkConversationSeen(ctx context.Context, senderID, receiverID string) error
	MarkSeen(ctx context.Context, id, receiverID string) (bool, error)
	CountUnseenBySender(ctx context.Context, receiverID string) (map[string]int, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) error {
	const query = `
		INSERT INTO messages (id, sender_id, receiver_id, text, image, seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.SenderID,
		message.ReceiverID,
		message.Text,
		message.Image,
		message.Seen,
		message.CreatedAt,
	)
	return err
}

func (r *PgMessageRepository) ListConversation(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	const query = `
		SELECT id, sender_id, receiver_id, text, image, seen, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, userA, userB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		err = rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.Text,
			&msg.Image,
			&msg.Seen,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *PgMessageRepository) MarkConversationSeen(ctx context.Context, senderID, receiverID string) error {
	const query = `
		UPDATE messages SET seen = TRUE
		WHERE sender_id = $1 AND receiver_id = $2 AND NOT seen
	`
	_, err := r.pool.Exec(ctx, query, senderID, receiverID)
	return err
}

func (r *PgMessageRepository) MarkSeen(ctx context.Context, id, receiverID string) (bool, error) {
	const query = `UPDATE messages SET seen = TRUE WHERE id = $1 AND receiver_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, receiverID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgMessageRepository) CountUnseenBySender(ctx context.Context, receiverID string) (map[string]int, error) {
	const query = `
		SELECT sender_id, COUNT(*)
		FROM messages
		WHERE receiver_id = $1 AND NOT seen
		GROUP BY sender_id
	`
	rows, err := r.pool.Query(ctx, query, receiverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			senderID string
			count    int
		)
		if err := rows.Scan(&senderID, &count); err != nil {
			return nil, err
		}
		counts[senderID] = count
	}
	return counts, rows.Err()
}
