package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saeid-a/VolunteerHub/internal/models"
	"go.uber.org/zap"
)

var (
	ErrNoConversationSelected = errors.New("no conversation selected")
	ErrEmptyMessage           = errors.New("message body is empty")
	ErrMessageNotFound        = errors.New("message not found")
)

// outgoingTTL bounds how long a client id waits for its echo.
const outgoingTTL = 10 * time.Minute

// Transport carries outbound requests to the message service.
type Transport interface {
	Send(ctx context.Context, req models.SendRequest) (*models.Message, error)
	AcknowledgeRead(ctx context.Context, participantID int64) error
}

// Subscription is a user's private real-time channel.
type Subscription interface {
	Events() <-chan models.MessageEvent
	Close() error
}

type SessionOption func(*Session)

func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

func WithHighlightDuration(d time.Duration) SessionOption {
	return func(s *Session) {
		s.highlightDuration = d
	}
}

// WithChangeHook registers a callback that runs after every change to a
// conversation, including highlight expiry.
func WithChangeHook(fn func(participantID int64)) SessionOption {
	return func(s *Session) {
		s.onChange = fn
	}
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// Session is the state behind one messaging view: the conversation store,
// the selected conversation and its reply and highlight state.
type Session struct {
	store       *Store
	transport   Transport
	highlighter *Highlighter

	logger            *zap.Logger
	highlightDuration time.Duration
	onChange          func(participantID int64)
	now               func() time.Time

	mu       sync.Mutex
	selected int64
	reply    ReplyState
	// client ids of messages this session originated, awaiting their echo
	outgoing map[string]time.Time
}

func NewSession(localUserID int64, records []models.ConversationRecord, transport Transport, opts ...SessionOption) *Session {
	s := &Session{
		store:     NewStore(localUserID, records),
		transport: transport,
		logger:    zap.NewNop(),
		now:       time.Now,
		outgoing:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.highlighter = NewHighlighter(s.highlightDuration, func(int64) {
		s.changed(s.Selected())
	})
	return s
}

func (s *Session) Store() *Store {
	return s.store
}

func (s *Session) Conversations() []Conversation {
	return s.store.Conversations()
}

func (s *Session) changed(participantID int64) {
	if s.onChange != nil && participantID > 0 {
		s.onChange(participantID)
	}
}

// Run applies events from sub in delivery order until ctx is done or the
// channel closes. The subscription is closed on return.
func (s *Session) Run(ctx context.Context, sub Subscription) error {
	defer func() {
		if err := sub.Close(); err != nil {
			s.logger.Debug("close subscription", zap.Error(err))
		}
	}()

	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			s.HandleEvent(event)
		}
	}
}

// HandleEvent applies a single inbound event. Echoes of messages this
// session sent itself are dropped; they are already in the store.
func (s *Session) HandleEvent(event models.MessageEvent) {
	if s.isOwnEcho(event.Message) {
		s.logger.Debug("skip echo of local send", zap.String("client_id", event.ClientID))
		return
	}

	conversation, err := s.store.ApplyInbound(event)
	if err != nil {
		s.logger.Debug("drop inbound event", zap.Int64("message_id", event.ID), zap.Error(err))
		return
	}
	s.changed(conversation.Participant.ID)
}

func (s *Session) isOwnEcho(message models.Message) bool {
	if message.ClientID == "" || message.SenderID != s.store.LocalUserID() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.outgoing[message.ClientID]
	if ok {
		delete(s.outgoing, message.ClientID)
	}
	return ok
}

// trackOutgoing remembers clientID until its echo arrives. Ids whose echo
// never came are dropped after outgoingTTL. Callers hold s.mu.
func (s *Session) trackOutgoing(clientID string) {
	now := s.now()
	for id, since := range s.outgoing {
		if now.Sub(since) > outgoingTTL {
			delete(s.outgoing, id)
		}
	}
	s.outgoing[clientID] = now
}

func (s *Session) pendingEchoes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outgoing)
}

func (s *Session) Selected() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Select switches the view to participantID. Reply and highlight state
// never carry over. Unread messages are marked read locally first and then
// acknowledged; a failed acknowledgement is logged and not rolled back.
func (s *Session) Select(ctx context.Context, participantID int64) (Conversation, bool) {
	s.mu.Lock()
	s.selected = participantID
	s.reply = CancelReply()
	s.mu.Unlock()
	s.highlighter.Clear()

	conversation, ok := s.store.Select(participantID)
	if !ok {
		return Conversation{}, false
	}
	if conversation.Unread == 0 {
		return conversation, true
	}

	conversation, _ = s.store.MarkRead(participantID)
	s.changed(participantID)
	if err := s.transport.AcknowledgeRead(ctx, participantID); err != nil {
		s.logger.Warn("acknowledge read",
			zap.Int64("participant_id", participantID),
			zap.Error(err),
		)
	}
	return conversation, true
}

func (s *Session) Reply() ReplyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reply
}

// BeginReply starts replying to a message of the selected conversation.
func (s *Session) BeginReply(messageID int64) (ReplyState, error) {
	participantID := s.Selected()
	if participantID == 0 {
		return ReplyState{}, ErrNoConversationSelected
	}
	conversation, ok := s.store.Select(participantID)
	if !ok {
		return ReplyState{}, ErrNoConversationSelected
	}
	for _, message := range conversation.Messages {
		if message.ID == messageID && messageID != 0 {
			state := BeginReply(message)
			s.mu.Lock()
			s.reply = state
			s.mu.Unlock()
			return state, nil
		}
	}
	return ReplyState{}, ErrMessageNotFound
}

func (s *Session) CancelReply() ReplyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = CancelReply()
	return s.reply
}

func (s *Session) Highlight(messageID int64) HighlightState {
	state := s.highlighter.Highlight(messageID)
	s.changed(s.Selected())
	return state
}

func (s *Session) Highlighted() (HighlightState, bool) {
	return s.highlighter.Current()
}

// Send appends an optimistic pending copy of the message to the selected
// conversation, then resolves it with the server copy or marks it failed.
func (s *Session) Send(ctx context.Context, body string) (models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return models.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	participantID := s.selected
	reply := s.reply
	s.mu.Unlock()
	if participantID == 0 {
		return models.Message{}, ErrNoConversationSelected
	}

	message := models.Message{
		ClientID:   uuid.NewString(),
		SenderID:   s.store.LocalUserID(),
		ReceiverID: participantID,
		Body:       body,
		CreatedAt:  s.now().UTC(),
		Status:     models.MessageStatusPending,
	}
	if conversation, ok := s.store.Select(participantID); ok {
		if conversation.Project != nil {
			projectID := conversation.Project.ID
			message.ProjectID = &projectID
		}
		if conversation.Booking != nil {
			bookingID := conversation.Booking.ID
			message.BookingID = &bookingID
		}
	}
	if reply.Active && reply.Target != nil {
		replyTo := reply.Target.ID
		message.ReplyToID = &replyTo
		message.OriginalMessage = &models.MessageSnapshot{
			ID:       reply.Target.ID,
			SenderID: reply.Target.SenderID,
			Body:     reply.Target.Body,
		}
	}

	s.mu.Lock()
	s.trackOutgoing(message.ClientID)
	s.mu.Unlock()
	s.store.AppendLocal(participantID, message)
	s.changed(participantID)

	sent, err := s.deliver(ctx, participantID, message)
	if err != nil {
		return sent, err
	}

	s.mu.Lock()
	if s.selected == participantID {
		s.reply = CancelReply()
	}
	s.mu.Unlock()
	return sent, nil
}

// Retry resends a failed message.
func (s *Session) Retry(ctx context.Context, participantID int64, clientID string) (models.Message, error) {
	message, ok := s.store.FindByClientID(participantID, clientID)
	if !ok || message.Status != models.MessageStatusFailed {
		return models.Message{}, ErrMessageNotFound
	}
	s.store.Retrying(participantID, clientID)
	s.mu.Lock()
	s.trackOutgoing(clientID)
	s.mu.Unlock()
	s.changed(participantID)
	message.Status = models.MessageStatusPending
	return s.deliver(ctx, participantID, message)
}

func (s *Session) deliver(ctx context.Context, participantID int64, message models.Message) (models.Message, error) {
	acknowledged, err := s.transport.Send(ctx, models.SendRequest{
		ReceiverID: participantID,
		Message:    message.Body,
		ClientID:   message.ClientID,
		ReplyTo:    message.ReplyToID,
		ProjectID:  message.ProjectID,
		BookingID:  message.BookingID,
	})
	if err != nil {
		s.store.Fail(participantID, message.ClientID)
		s.changed(participantID)
		s.logger.Warn("send message",
			zap.Int64("participant_id", participantID),
			zap.String("client_id", message.ClientID),
			zap.Error(err),
		)
		message.Status = models.MessageStatusFailed
		return message, fmt.Errorf("send message: %w", err)
	}

	final := *acknowledged
	if final.OriginalMessage == nil {
		final.OriginalMessage = message.OriginalMessage
	}
	s.store.Resolve(participantID, message.ClientID, final)
	s.changed(participantID)
	if resolved, found := s.store.FindByClientID(participantID, message.ClientID); found {
		return resolved, nil
	}
	return final, nil
}

// Close releases the highlight timer.
func (s *Session) Close() {
	s.highlighter.Stop()
}
