package messaging

import (
	"errors"

	"github.com/saeid-a/VolunteerHub/internal/models"
)

var ErrMalformedEvent = errors.New("malformed message event")

// CounterpartOf returns the id of the other party of a message as seen by
// localUserID.
func CounterpartOf(localUserID int64, message models.Message) int64 {
	if message.ReceiverID == localUserID {
		return message.SenderID
	}
	return message.ReceiverID
}

// ApplyInbound merges a real-time event into the store. Incoming messages
// bump the unread counter; echoes of the local user's own messages do not.
// The same event applied twice is appended twice.
func (s *Store) ApplyInbound(event models.MessageEvent) (Conversation, error) {
	if event.SenderID <= 0 || event.ReceiverID <= 0 {
		return Conversation{}, ErrMalformedEvent
	}

	message := event.Message
	if message.Status == "" {
		message.Status = models.MessageStatusSent
	}
	incoming := message.ReceiverID == s.localUserID
	key := CounterpartOf(s.localUserID, message)

	conversation, _ := s.update(key, func() *Conversation {
		return synthesizeConversation(key, incoming, event)
	}, func(c *Conversation) bool {
		c.Messages = append(c.Messages, message)
		if s.isUnread(message) {
			c.Unread++
		}
		if event.HasPayment != nil && c.Project != nil && message.ProjectID != nil && *message.ProjectID == c.Project.ID {
			c.Project.PaymentVerified = *event.HasPayment
		}
		return true
	})
	return conversation, nil
}

func synthesizeConversation(key int64, incoming bool, event models.MessageEvent) *Conversation {
	conversation := &Conversation{
		Participant: models.Participant{ID: key},
	}
	if incoming {
		conversation.Participant.Name = event.SenderName
		conversation.Participant.Email = event.SenderEmail
	}
	if event.ProjectID != nil {
		project := &models.Project{
			ID:    *event.ProjectID,
			Title: event.ProjectTitle,
			Type:  event.ProjectType,
		}
		if event.HasPayment != nil {
			project.PaymentVerified = *event.HasPayment
		}
		conversation.Project = project
	}
	if event.BookingID != nil {
		conversation.Booking = &models.Booking{ID: *event.BookingID}
	}
	return conversation
}
