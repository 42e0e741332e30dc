package messaging

import (
	"slices"
	"sort"
	"sync"

	"github.com/saeid-a/VolunteerHub/internal/models"
)

// Conversation is an immutable snapshot. The store never modifies a
// Conversation after handing it out; every mutation builds a new one.
type Conversation struct {
	Participant models.Participant
	Project     *models.Project
	Booking     *models.Booking
	Messages    []models.Message
	Latest      *models.Message
	Unread      int
}

func (c Conversation) IsPaidProject() bool {
	return c.Project.IsPaid()
}

func (c Conversation) HasVerifiedPayment() bool {
	return c.Project != nil && c.Project.PaymentVerified
}

// Display returns the body of msg as it should be shown in this conversation.
func (c Conversation) Display(msg models.Message) Outcome {
	return Filter(msg.Body, c.IsPaidProject(), c.HasVerifiedPayment())
}

func (c Conversation) clone() Conversation {
	next := c
	next.Messages = slices.Clone(c.Messages)
	if c.Project != nil {
		project := *c.Project
		next.Project = &project
	}
	if c.Booking != nil {
		booking := *c.Booking
		next.Booking = &booking
	}
	next.refreshLatest()
	return next
}

func (c *Conversation) refreshLatest() {
	if len(c.Messages) == 0 {
		c.Latest = nil
		return
	}
	latest := c.Messages[len(c.Messages)-1]
	c.Latest = &latest
}

func (c *Conversation) indexOfClientID(clientID string) int {
	if clientID == "" {
		return -1
	}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].ClientID == clientID {
			return i
		}
	}
	return -1
}

// Store holds the conversations of one messaging session, keyed by the id of
// the other participant.
type Store struct {
	localUserID int64

	mu            sync.RWMutex
	conversations map[int64]*Conversation
}

// NewStore builds a store from the initial batch. Records without a
// participant cannot be keyed and are dropped.
func NewStore(localUserID int64, records []models.ConversationRecord) *Store {
	s := &Store{
		localUserID:   localUserID,
		conversations: make(map[int64]*Conversation, len(records)),
	}

	for _, record := range records {
		if record.Participant == nil || record.Participant.ID <= 0 {
			continue
		}
		conversation := &Conversation{
			Participant: *record.Participant,
			Project:     record.Project,
			Booking:     record.Booking,
			Messages:    slices.Clone(record.Messages),
		}
		*conversation = conversation.clone()
		conversation.Unread = s.countUnread(conversation.Messages)
		s.conversations[record.Participant.ID] = conversation
	}

	return s
}

func (s *Store) LocalUserID() int64 {
	return s.localUserID
}

func (s *Store) countUnread(messages []models.Message) int {
	unread := 0
	for _, message := range messages {
		if s.isUnread(message) {
			unread++
		}
	}
	return unread
}

func (s *Store) isUnread(message models.Message) bool {
	return message.ReceiverID == s.localUserID && message.Status == models.MessageStatusSent
}

// Select looks up a conversation. It does not mark anything read.
func (s *Store) Select(participantID int64) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversation, ok := s.conversations[participantID]
	if !ok {
		return Conversation{}, false
	}
	return *conversation, true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Conversations returns every conversation, most recently active first.
// Conversations without messages sort last by participant id.
func (s *Store) Conversations() []Conversation {
	s.mu.RLock()
	list := make([]Conversation, 0, len(s.conversations))
	for _, conversation := range s.conversations {
		list = append(list, *conversation)
	}
	s.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].Latest, list[j].Latest
		switch {
		case a != nil && b != nil && !a.CreatedAt.Equal(b.CreatedAt):
			return a.CreatedAt.After(b.CreatedAt)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		default:
			return list[i].Participant.ID < list[j].Participant.ID
		}
	})
	return list
}

// update runs fn against a copy of the conversation and swaps the copy in
// when fn returns true. For an absent conversation, create supplies the
// starting value; a nil create leaves the store unchanged.
func (s *Store) update(participantID int64, create func() *Conversation, fn func(*Conversation) bool) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next Conversation
	if current, ok := s.conversations[participantID]; ok {
		next = current.clone()
	} else {
		if create == nil {
			return Conversation{}, false
		}
		next = *create()
	}

	if !fn(&next) {
		return Conversation{}, false
	}
	next.refreshLatest()
	s.conversations[participantID] = &next
	return next, true
}

// AppendLocal records a message the local user sent. The unread counter is
// never touched.
func (s *Store) AppendLocal(participantID int64, message models.Message) Conversation {
	conversation, _ := s.update(participantID, func() *Conversation {
		return &Conversation{Participant: models.Participant{ID: participantID}}
	}, func(c *Conversation) bool {
		c.Messages = append(c.Messages, message)
		return true
	})
	return conversation
}

// MarkRead flips every sent message addressed to the local user to read
// and zeroes the unread counter.
func (s *Store) MarkRead(participantID int64) (Conversation, bool) {
	return s.update(participantID, nil, func(c *Conversation) bool {
		for i := range c.Messages {
			if s.isUnread(c.Messages[i]) {
				c.Messages[i].Status = models.MessageStatusRead
			}
		}
		c.Unread = 0
		return true
	})
}

// Resolve replaces the optimistic copy identified by clientID with the
// acknowledged server copy.
func (s *Store) Resolve(participantID int64, clientID string, acknowledged models.Message) (Conversation, bool) {
	return s.update(participantID, nil, func(c *Conversation) bool {
		i := c.indexOfClientID(clientID)
		if i < 0 {
			return false
		}
		if acknowledged.ClientID == "" {
			acknowledged.ClientID = clientID
		}
		if acknowledged.Status == "" || acknowledged.Status == models.MessageStatusPending {
			acknowledged.Status = models.MessageStatusSent
		}
		c.Messages[i] = acknowledged
		return true
	})
}

// Fail marks an optimistic message as rejected.
func (s *Store) Fail(participantID int64, clientID string) (Conversation, bool) {
	return s.setLocalStatus(participantID, clientID, models.MessageStatusFailed)
}

// Retrying moves a failed message back to pending.
func (s *Store) Retrying(participantID int64, clientID string) (Conversation, bool) {
	return s.setLocalStatus(participantID, clientID, models.MessageStatusPending)
}

func (s *Store) setLocalStatus(participantID int64, clientID string, status models.MessageStatus) (Conversation, bool) {
	return s.update(participantID, nil, func(c *Conversation) bool {
		i := c.indexOfClientID(clientID)
		if i < 0 {
			return false
		}
		c.Messages[i].Status = status
		return true
	})
}

// FindByClientID returns the local message with the given client id.
func (s *Store) FindByClientID(participantID int64, clientID string) (models.Message, bool) {
	conversation, ok := s.Select(participantID)
	if !ok {
		return models.Message{}, false
	}
	i := conversation.indexOfClientID(clientID)
	if i < 0 {
		return models.Message{}, false
	}
	return conversation.Messages[i], true
}
