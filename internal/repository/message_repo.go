package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/saeid-a/VolunteerHub/internal/models"
)

type CreateMessageInput struct {
	ClientID   string
	SenderID   int64
	ReceiverID int64
	Body       string
	ProjectID  *int64
	BookingID  *int64
	ReplyToID  *int64
}

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `
	m.id,
	COALESCE(m.client_id, ''),
	m.sender_id,
	m.receiver_id,
	m.body,
	m.status,
	m.created_at,
	m.project_id,
	m.booking_id,
	m.reply_to,
	om.id,
	om.sender_id,
	om.body
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var message models.Message
	var originalID sql.NullInt64
	var originalSenderID sql.NullInt64
	var originalBody sql.NullString

	if err := row.Scan(
		&message.ID,
		&message.ClientID,
		&message.SenderID,
		&message.ReceiverID,
		&message.Body,
		&message.Status,
		&message.CreatedAt,
		&message.ProjectID,
		&message.BookingID,
		&message.ReplyToID,
		&originalID,
		&originalSenderID,
		&originalBody,
	); err != nil {
		return nil, err
	}

	if originalID.Valid {
		message.OriginalMessage = &models.MessageSnapshot{
			ID:       originalID.Int64,
			SenderID: originalSenderID.Int64,
			Body:     originalBody.String,
		}
	}

	return &message, nil
}

// Create stores a message. A repeated client id from the same sender
// returns the message stored the first time.
func (r *MessageRepository) Create(ctx context.Context, input CreateMessageInput) (*models.Message, error) {
	var clientID *string
	if input.ClientID != "" {
		clientID = &input.ClientID
	}

	query := `
		WITH inserted AS (
			INSERT INTO messages (client_id, sender_id, receiver_id, body, status, project_id, booking_id, reply_to)
			VALUES ($1, $2, $3, $4, 'sent', $5, $6, $7)
			ON CONFLICT (sender_id, client_id) WHERE client_id IS NOT NULL DO NOTHING
			RETURNING *
		)
		SELECT ` + messageColumns + `
		FROM inserted m
		LEFT JOIN messages om ON om.id = m.reply_to
	`

	message, err := scanMessage(r.db.QueryRow(
		ctx,
		query,
		clientID,
		input.SenderID,
		input.ReceiverID,
		input.Body,
		input.ProjectID,
		input.BookingID,
		input.ReplyToID,
	))
	if errors.Is(err, pgx.ErrNoRows) && clientID != nil {
		return r.GetByClientID(ctx, input.SenderID, *clientID)
	}
	return message, err
}

func (r *MessageRepository) GetByClientID(ctx context.Context, senderID int64, clientID string) (*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		LEFT JOIN messages om ON om.id = m.reply_to
		WHERE m.sender_id = $1 AND m.client_id = $2
	`

	return scanMessage(r.db.QueryRow(ctx, query, senderID, clientID))
}

func (r *MessageRepository) GetByID(ctx context.Context, messageID int64) (*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		LEFT JOIN messages om ON om.id = m.reply_to
		WHERE m.id = $1
	`

	return scanMessage(r.db.QueryRow(ctx, query, messageID))
}
