package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/saeid-a/VolunteerHub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu       sync.Mutex
	sent     []models.SendRequest
	acks     []int64
	sendErr  error
	ackErr   error
	nextID   int64
	received chan models.SendRequest
}

func (f *fakeTransport) Send(_ context.Context, req models.SendRequest) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	if f.received != nil {
		f.received <- req
	}
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	return &models.Message{
		ID:         100 + f.nextID,
		ClientID:   req.ClientID,
		SenderID:   localUser,
		ReceiverID: req.ReceiverID,
		Body:       req.Message,
		CreatedAt:  baseTime.Add(time.Hour),
		Status:     models.MessageStatusSent,
		ReplyToID:  req.ReplyTo,
		ProjectID:  req.ProjectID,
	}, nil
}

func (f *fakeTransport) AcknowledgeRead(_ context.Context, participantID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, participantID)
	return f.ackErr
}

type chanSubscription struct {
	events chan models.MessageEvent
	closed bool
}

func (c *chanSubscription) Events() <-chan models.MessageEvent { return c.events }

func (c *chanSubscription) Close() error {
	c.closed = true
	return nil
}

func newTestSession(t *testing.T, transport *fakeTransport, opts ...SessionOption) *Session {
	t.Helper()
	session := NewSession(localUser, []models.ConversationRecord{paidProjectRecord(false)}, transport, opts...)
	t.Cleanup(session.Close)
	return session
}

func TestSessionSelectMarksReadAndAcknowledges(t *testing.T) {
	transport := &fakeTransport{}
	session := newTestSession(t, transport)

	conversation, ok := session.Select(context.Background(), 7)
	require.True(t, ok)
	assert.Equal(t, 0, conversation.Unread)
	assert.Equal(t, models.MessageStatusRead, conversation.Messages[0].Status)
	assert.Equal(t, []int64{7}, transport.acks)

	session.Select(context.Background(), 7)
	assert.Equal(t, []int64{7}, transport.acks, "no ack without unread messages")
}

func TestSessionReadAckFailureKeepsLocalState(t *testing.T) {
	transport := &fakeTransport{ackErr: errors.New("offline")}
	session := newTestSession(t, transport)

	conversation, ok := session.Select(context.Background(), 7)
	require.True(t, ok)
	assert.Equal(t, 0, conversation.Unread)

	stored, _ := session.Store().Select(7)
	assert.Equal(t, 0, stored.Unread)
}

func TestSessionSendReplyScenario(t *testing.T) {
	transport := &fakeTransport{}
	session := newTestSession(t, transport)

	session.Select(context.Background(), 7)
	_, err := session.BeginReply(1)
	require.NoError(t, err)

	sent, err := session.Send(context.Background(), "  sure, what time?  ")
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusSent, sent.Status)
	assert.Equal(t, "sure, what time?", sent.Body)
	require.NotNil(t, sent.OriginalMessage)
	assert.Equal(t, int64(1), sent.OriginalMessage.ID)

	conversation, _ := session.Store().Select(7)
	assert.Len(t, conversation.Messages, 2)
	assert.Equal(t, 0, conversation.Unread)
	require.NotNil(t, conversation.Latest)
	assert.Equal(t, sent.ID, conversation.Latest.ID)
	assert.Equal(t, sent.ClientID, conversation.Latest.ClientID)

	require.Len(t, transport.sent, 1)
	req := transport.sent[0]
	assert.Equal(t, int64(7), req.ReceiverID)
	require.NotNil(t, req.ReplyTo)
	assert.Equal(t, int64(1), *req.ReplyTo)
	require.NotNil(t, req.ProjectID)
	assert.Equal(t, int64(3), *req.ProjectID)
	assert.NotEmpty(t, req.ClientID)

	assert.False(t, session.Reply().Active)
}

func TestSessionSendIsPendingUntilAcknowledged(t *testing.T) {
	transport := &fakeTransport{received: make(chan models.SendRequest, 1)}
	session := newTestSession(t, transport)
	session.Select(context.Background(), 7)

	transport.mu.Lock()
	done := make(chan error, 1)
	go func() {
		_, err := session.Send(context.Background(), "pending?")
		done <- err
	}()

	require.Eventually(t, func() bool {
		conversation, _ := session.Store().Select(7)
		return len(conversation.Messages) == 2
	}, time.Second, 5*time.Millisecond)
	conversation, _ := session.Store().Select(7)
	assert.Equal(t, models.MessageStatusPending, conversation.Latest.Status)

	transport.mu.Unlock()
	<-transport.received
	require.NoError(t, <-done)

	conversation, _ = session.Store().Select(7)
	assert.Equal(t, models.MessageStatusSent, conversation.Latest.Status)
}

func TestSessionSendFailureMarksFailedAndRetries(t *testing.T) {
	transport := &fakeTransport{sendErr: errors.New("503")}
	session := newTestSession(t, transport)
	session.Select(context.Background(), 7)
	session.BeginReply(1)

	failed, err := session.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, models.MessageStatusFailed, failed.Status)
	assert.True(t, session.Reply().Active, "reply survives a failed send")

	conversation, _ := session.Store().Select(7)
	assert.Equal(t, models.MessageStatusFailed, conversation.Latest.Status)
	assert.Equal(t, conversation.Latest.Status, failed.Status)
	assert.Equal(t, failed.ClientID, conversation.Latest.ClientID)
	assert.Equal(t, 0, conversation.Unread)

	transport.mu.Lock()
	transport.sendErr = nil
	transport.mu.Unlock()

	sent, err := session.Retry(context.Background(), 7, failed.ClientID)
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusSent, sent.Status)

	conversation, _ = session.Store().Select(7)
	assert.Len(t, conversation.Messages, 2)
	assert.Equal(t, failed.ClientID, conversation.Latest.ClientID)

	_, err = session.Retry(context.Background(), 7, failed.ClientID)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestSessionSendRequiresSelectionAndBody(t *testing.T) {
	session := newTestSession(t, &fakeTransport{})

	_, err := session.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoConversationSelected)

	session.Select(context.Background(), 7)
	_, err = session.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSessionSelectClearsReplyAndHighlight(t *testing.T) {
	session := newTestSession(t, &fakeTransport{}, WithHighlightDuration(time.Minute))
	session.Select(context.Background(), 7)

	_, err := session.BeginReply(1)
	require.NoError(t, err)
	session.Highlight(1)
	_, highlighted := session.Highlighted()
	require.True(t, highlighted)

	session.Select(context.Background(), 99)
	assert.False(t, session.Reply().Active)
	_, highlighted = session.Highlighted()
	assert.False(t, highlighted)
}

func TestSessionReplyAndHighlightCompose(t *testing.T) {
	session := newTestSession(t, &fakeTransport{}, WithHighlightDuration(20*time.Millisecond))
	session.Select(context.Background(), 7)
	session.Store().AppendLocal(7, outgoing(2, 7, "second"))

	_, err := session.BeginReply(2)
	require.NoError(t, err)
	session.Highlight(1)

	require.Eventually(t, func() bool {
		_, ok := session.Highlighted()
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.True(t, session.Reply().Active)
	assert.Equal(t, int64(2), session.Reply().Target.ID)
}

func TestSessionBeginReplyUnknownMessage(t *testing.T) {
	session := newTestSession(t, &fakeTransport{})

	_, err := session.BeginReply(1)
	assert.ErrorIs(t, err, ErrNoConversationSelected)

	session.Select(context.Background(), 7)
	_, err = session.BeginReply(404)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestSessionRunAppliesEventsAndSkipsOwnEcho(t *testing.T) {
	transport := &fakeTransport{}
	var changes []int64
	var mu sync.Mutex
	session := newTestSession(t, transport, WithChangeHook(func(id int64) {
		mu.Lock()
		changes = append(changes, id)
		mu.Unlock()
	}))
	session.Select(context.Background(), 7)

	sent, err := session.Send(context.Background(), "echo me")
	require.NoError(t, err)

	sub := &chanSubscription{events: make(chan models.MessageEvent, 4)}
	sub.events <- models.MessageEvent{Message: sent}
	sub.events <- event(incoming(200, 99, "new volunteer here", models.MessageStatusSent))
	sub.events <- event(models.Message{ID: 201, Body: "broken"})
	close(sub.events)

	require.NoError(t, session.Run(context.Background(), sub))
	assert.True(t, sub.closed)

	conversation, _ := session.Store().Select(7)
	assert.Len(t, conversation.Messages, 2, "own echo is not appended twice")
	assert.Equal(t, 0, session.pendingEchoes(), "echo releases its client id")

	newcomer, ok := session.Store().Select(99)
	require.True(t, ok)
	assert.Equal(t, 1, newcomer.Unread)
	assert.Equal(t, 2, session.Store().Len())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, changes, int64(99))
}

func TestSessionRunStopsOnContextCancel(t *testing.T) {
	session := newTestSession(t, &fakeTransport{})
	sub := &chanSubscription{events: make(chan models.MessageEvent)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := session.Run(ctx, sub)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, sub.closed)
}

func TestSessionForgetsEchoesThatNeverArrive(t *testing.T) {
	clock := baseTime
	session := newTestSession(t, &fakeTransport{}, WithClock(func() time.Time { return clock }))
	session.Select(context.Background(), 7)

	_, err := session.Send(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, 1, session.pendingEchoes())

	clock = clock.Add(outgoingTTL + time.Minute)
	second, err := session.Send(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, 1, session.pendingEchoes(), "expired id is dropped on the next send")

	before, _ := session.Store().Select(7)
	session.HandleEvent(models.MessageEvent{Message: second})
	assert.Equal(t, 0, session.pendingEchoes())
	after, _ := session.Store().Select(7)
	assert.Len(t, after.Messages, len(before.Messages))
}
