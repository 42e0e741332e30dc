package models

import "time"

type MessageStatus string

const (
	MessageStatusPending MessageStatus = "pending"
	MessageStatusSent    MessageStatus = "sent"
	MessageStatusRead    MessageStatus = "read"
	MessageStatusFailed  MessageStatus = "failed"
)

// MessageSnapshot is the denormalized copy of a replied-to message.
type MessageSnapshot struct {
	ID       int64  `json:"id"`
	SenderID int64  `json:"sender_id"`
	Body     string `json:"body"`
}

type Message struct {
	ID              int64            `json:"id"`
	ClientID        string           `json:"client_id,omitempty"`
	SenderID        int64            `json:"sender_id"`
	ReceiverID      int64            `json:"receiver_id"`
	Body            string           `json:"body"`
	CreatedAt       time.Time        `json:"created_at"`
	Status          MessageStatus    `json:"status"`
	ProjectID       *int64           `json:"project_id,omitempty"`
	BookingID       *int64           `json:"booking_id,omitempty"`
	ReplyToID       *int64           `json:"reply_to,omitempty"`
	OriginalMessage *MessageSnapshot `json:"original_message,omitempty"`
}

type Participant struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
}

// ConversationRecord is one entry of the initial conversation batch.
type ConversationRecord struct {
	Participant *Participant `json:"participant"`
	Project     *Project     `json:"project,omitempty"`
	Booking     *Booking     `json:"booking,omitempty"`
	Messages    []Message    `json:"messages"`
}

// MessageEvent is a message pushed over a user's private channel, plus
// whatever sender and project metadata the server had at hand.
type MessageEvent struct {
	Message
	SenderName   string      `json:"sender_name,omitempty"`
	SenderEmail  *string     `json:"sender_email,omitempty"`
	ProjectTitle string      `json:"project_title,omitempty"`
	ProjectType  ProjectType `json:"project_type,omitempty"`
	HasPayment   *bool       `json:"has_payment,omitempty"`
}

type SendRequest struct {
	ReceiverID int64  `json:"receiver_id"`
	Message    string `json:"message"`
	ClientID   string `json:"client_id,omitempty"`
	ReplyTo    *int64 `json:"reply_to,omitempty"`
	ProjectID  *int64 `json:"project_id,omitempty"`
	BookingID  *int64 `json:"booking_id,omitempty"`
}

const (
	ChannelEventMessage = "message"
	ChannelEventRead    = "read"
	ChannelEventError   = "error"
)

// ChannelEvent is the frame format of the private websocket channel.
type ChannelEvent struct {
	Type          string        `json:"type"`
	Message       *MessageEvent `json:"message,omitempty"`
	ParticipantID int64         `json:"participant_id,omitempty"`
	Error         string        `json:"error,omitempty"`
	Timestamp     string        `json:"timestamp"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
