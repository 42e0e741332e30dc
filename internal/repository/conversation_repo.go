package repository

import (
	"context"

	"github.com/saeid-a/VolunteerHub/internal/models"
)

// ConversationRepository answers queries over the messages exchanged
// between two users. Conversations are not stored as rows; a conversation
// is the set of messages between a pair.
type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// ListMessagesForParticipant returns every message the participant sent or
// received, oldest first.
func (r *ConversationRepository) ListMessagesForParticipant(
	ctx context.Context,
	participantID int64,
) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		LEFT JOIN messages om ON om.id = m.reply_to
		WHERE m.sender_id = $1 OR m.receiver_id = $1
		ORDER BY m.created_at ASC, m.id ASC
	`

	return r.queryMessages(ctx, query, participantID)
}

// ListBetween pages through a conversation newest first.
func (r *ConversationRepository) ListBetween(
	ctx context.Context,
	userID int64,
	otherID int64,
	limit int,
	offset int,
) ([]models.Message, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, userID, otherID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		LEFT JOIN messages om ON om.id = m.reply_to
		WHERE (m.sender_id = $1 AND m.receiver_id = $2)
		   OR (m.sender_id = $2 AND m.receiver_id = $1)
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $3 OFFSET $4
	`

	messages, err := r.queryMessages(ctx, query, userID, otherID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *ConversationRepository) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkRead flips every sent message from otherID to readerID to read and
// reports how many changed.
func (r *ConversationRepository) MarkRead(
	ctx context.Context,
	readerID int64,
	otherID int64,
) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages
		SET status = 'read'
		WHERE receiver_id = $1
		  AND sender_id = $2
		  AND status = 'sent'
	`, readerID, otherID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
