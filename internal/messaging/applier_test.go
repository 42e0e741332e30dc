package messaging

import (
	"sync"
	"testing"

	"github.com/saeid-a/VolunteerHub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(message models.Message) models.MessageEvent {
	return models.MessageEvent{Message: message}
}

func TestApplyInboundIncrementsUnreadForIncoming(t *testing.T) {
	store := NewStore(localUser, []models.ConversationRecord{paidProjectRecord(false)})

	conversation, err := store.ApplyInbound(event(incoming(2, 7, "are you coming?", models.MessageStatusSent)))
	require.NoError(t, err)
	assert.Equal(t, 2, conversation.Unread)
	assert.Len(t, conversation.Messages, 2)
	assert.Equal(t, int64(2), conversation.Latest.ID)
}

func TestApplyInboundEchoDoesNotTouchUnread(t *testing.T) {
	store := NewStore(localUser, []models.ConversationRecord{paidProjectRecord(false)})

	conversation, err := store.ApplyInbound(event(outgoing(2, 7, "yes")))
	require.NoError(t, err)
	assert.Equal(t, int64(7), conversation.Participant.ID)
	assert.Equal(t, 1, conversation.Unread)
	assert.Len(t, conversation.Messages, 2)
}

func TestApplyInboundCreatesConversationForNewParticipant(t *testing.T) {
	store := NewStore(localUser, []models.ConversationRecord{paidProjectRecord(false)})

	verified := true
	_, err := store.ApplyInbound(models.MessageEvent{
		Message:      models.Message{ID: 8, SenderID: 99, ReceiverID: localUser, Body: "hello", ProjectID: int64Ptr(11)},
		SenderName:   "Sam",
		ProjectTitle: "Food bank",
		ProjectType:  models.ProjectTypePaid,
		HasPayment:   &verified,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	conversation, ok := store.Select(99)
	require.True(t, ok)
	assert.Equal(t, 1, conversation.Unread)
	assert.Equal(t, "Sam", conversation.Participant.Name)
	require.NotNil(t, conversation.Project)
	assert.Equal(t, int64(11), conversation.Project.ID)
	assert.True(t, conversation.HasVerifiedPayment())
	assert.Equal(t, models.MessageStatusSent, conversation.Latest.Status)
}

func TestApplyInboundEchoForNewParticipantStartsAtZero(t *testing.T) {
	store := NewStore(localUser, nil)

	conversation, err := store.ApplyInbound(event(outgoing(3, 42, "first contact")))
	require.NoError(t, err)
	assert.Equal(t, int64(42), conversation.Participant.ID)
	assert.Equal(t, 0, conversation.Unread)
	assert.Empty(t, conversation.Participant.Name)
}

func TestApplyInboundRejectsMalformedEvents(t *testing.T) {
	store := NewStore(localUser, nil)

	_, err := store.ApplyInbound(event(models.Message{ID: 1, ReceiverID: localUser, Body: "?"}))
	assert.ErrorIs(t, err, ErrMalformedEvent)
	_, err = store.ApplyInbound(event(models.Message{ID: 1, SenderID: 4, Body: "?"}))
	assert.ErrorIs(t, err, ErrMalformedEvent)
	assert.Equal(t, 0, store.Len())
}

func TestApplyInboundUpdatesPaymentFlag(t *testing.T) {
	store := NewStore(localUser, []models.ConversationRecord{paidProjectRecord(false)})

	verified := true
	message := incoming(2, 7, "payment done", models.MessageStatusSent)
	message.ProjectID = int64Ptr(3)
	conversation, err := store.ApplyInbound(models.MessageEvent{Message: message, HasPayment: &verified})
	require.NoError(t, err)

	assert.True(t, conversation.HasVerifiedPayment())
	assert.False(t, conversation.Display(conversation.Messages[0]).Redacted)
}

func TestApplyInboundDoesNotDeduplicate(t *testing.T) {
	store := NewStore(localUser, nil)
	ev := event(incoming(5, 9, "twice", models.MessageStatusSent))

	store.ApplyInbound(ev)
	conversation, err := store.ApplyInbound(ev)
	require.NoError(t, err)
	assert.Len(t, conversation.Messages, 2)
	assert.Equal(t, 2, conversation.Unread)
}

func TestApplyInboundInterleavedWithLocalMutations(t *testing.T) {
	store := NewStore(localUser, []models.ConversationRecord{{Participant: &models.Participant{ID: 7}}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(id int64) {
			defer wg.Done()
			_, _ = store.ApplyInbound(event(incoming(id, 7, "in", models.MessageStatusSent)))
		}(int64(i))
		go func(id int64) {
			defer wg.Done()
			store.AppendLocal(7, outgoing(1000+id, 7, "out"))
		}(int64(i))
		go func() {
			defer wg.Done()
			conversation, _ := store.Select(7)
			unread := 0
			for _, message := range conversation.Messages {
				if message.ReceiverID == localUser && message.Status == models.MessageStatusSent {
					unread++
				}
			}
			assert.Equal(t, unread, conversation.Unread)
		}()
	}
	wg.Wait()

	conversation, _ := store.Select(7)
	assert.Len(t, conversation.Messages, 100)
	assert.Equal(t, 50, conversation.Unread)

	conversation, _ = store.MarkRead(7)
	assert.Equal(t, 0, conversation.Unread)
}
