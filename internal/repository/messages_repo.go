package repository

import (
	"context"

	"github.com/akiftaxi/gatekeeper/internal/domain"
)

// MessagesRepository handles archived group message persistence.
type MessagesRepository struct {
	db Querier
}

// NewMessagesRepository creates a new messages repository.
func NewMessagesRepository(db Querier) *MessagesRepository {
	return &MessagesRepository{db: db}
}

// Save archives a group message. Replays of the same message ID are ignored.
func (r *MessagesRepository) Save(ctx context.Context, msg *domain.GroupMessage) error {
	query := `
		INSERT INTO group_messages (message_id, chat_id, sender_id, username,
		                            first_name, last_name, text, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (chat_id, message_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		msg.MessageID, msg.ChatID, msg.SenderID, msg.Username,
		msg.FirstName, msg.LastName, msg.Text, msg.SentAt, msg.CreatedAt,
	)
	return err
}

// List retrieves archived messages, newest first.
func (r *MessagesRepository) List(ctx context.Context, limit int) ([]*domain.GroupMessage, error) {
	query := `
		SELECT message_id, chat_id, sender_id, username, first_name, last_name,
		       text, sent_at, created_at
		FROM group_messages
		ORDER BY sent_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.GroupMessage
	for rows.Next() {
		msg := &domain.GroupMessage{}
		if err := rows.Scan(
			&msg.MessageID, &msg.ChatID, &msg.SenderID, &msg.Username,
			&msg.FirstName, &msg.LastName, &msg.Text, &msg.SentAt, &msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
