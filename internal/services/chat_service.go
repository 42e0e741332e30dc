package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/VolunteerHub/internal/messaging"
	"github.com/saeid-a/VolunteerHub/internal/metrics"
	"github.com/saeid-a/VolunteerHub/internal/models"
	"github.com/saeid-a/VolunteerHub/internal/repository"
	"go.uber.org/zap"
)

const maxMessageLength = 5000

type conversationStore interface {
	ListMessagesForParticipant(ctx context.Context, participantID int64) ([]models.Message, error)
	ListBetween(ctx context.Context, userID int64, otherID int64, limit int, offset int) ([]models.Message, int, error)
	MarkRead(ctx context.Context, readerID int64, otherID int64) (int64, error)
}

type messageStore interface {
	Create(ctx context.Context, input repository.CreateMessageInput) (*models.Message, error)
	GetByID(ctx context.Context, messageID int64) (*models.Message, error)
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	ListByIDs(ctx context.Context, ids []int64) (map[int64]models.User, error)
}

type projectReader interface {
	GetByID(ctx context.Context, projectID int64) (*models.ProjectRow, error)
	ListByIDs(ctx context.Context, projectIDs []int64) (map[int64]models.ProjectRow, error)
}

type bookingReader interface {
	GetByID(ctx context.Context, bookingID int64) (*models.BookingRow, error)
}

type paymentReader interface {
	ListVerifiedPayers(ctx context.Context, projectIDs []int64) (map[int64][]int64, error)
}

type ChatService struct {
	conversationRepo conversationStore
	messageRepo      messageStore
	userRepo         userReader
	projectRepo      projectReader
	bookingRepo      bookingReader
	paymentRepo      paymentReader
	limiter          *SendLimiter
	logger           *zap.Logger
}

type ChatDelivery struct {
	Event       models.MessageEvent
	RecipientID int64
}

func NewChatService(
	conversationRepo conversationStore,
	messageRepo messageStore,
	userRepo userReader,
	projectRepo projectReader,
	bookingRepo bookingReader,
	paymentRepo paymentReader,
	limiter *SendLimiter,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		projectRepo:      projectRepo,
		bookingRepo:      bookingRepo,
		paymentRepo:      paymentRepo,
		limiter:          limiter,
		logger:           logger,
	}
}

type pendingConversation struct {
	participantID int64
	messages      []models.Message
	projectID     int64
	bookingID     int64
}

// ListConversations builds the initial conversation batch for actorID: one
// record per counterpart, with the project and booking of the most recent
// message that referenced one.
func (s *ChatService) ListConversations(
	ctx context.Context,
	actorID int64,
	role string,
) ([]models.ConversationRecord, error) {
	if !canMessage(role) {
		return nil, ErrForbidden
	}

	messages, err := s.conversationRepo.ListMessagesForParticipant(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	order := make([]int64, 0)
	grouped := make(map[int64]*pendingConversation)
	for _, message := range messages {
		key := messaging.CounterpartOf(actorID, message)
		group, ok := grouped[key]
		if !ok {
			group = &pendingConversation{participantID: key}
			grouped[key] = group
			order = append(order, key)
		}
		group.messages = append(group.messages, message)
		if message.ProjectID != nil {
			group.projectID = *message.ProjectID
		}
		if message.BookingID != nil {
			group.bookingID = *message.BookingID
		}
	}

	users, err := s.userRepo.ListByIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	projectIDs := make([]int64, 0)
	for _, group := range grouped {
		if group.projectID > 0 && !slices.Contains(projectIDs, group.projectID) {
			projectIDs = append(projectIDs, group.projectID)
		}
	}
	projects, err := s.projectRepo.ListByIDs(ctx, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	payers, err := s.paymentRepo.ListVerifiedPayers(ctx, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("list verified payments: %w", err)
	}

	records := make([]models.ConversationRecord, 0, len(order))
	for _, key := range order {
		group := grouped[key]
		user, ok := users[key]
		if !ok {
			s.logger.Debug("skip conversation with unknown participant",
				zap.Int64("actor_id", actorID),
				zap.Int64("participant_id", key),
			)
			continue
		}

		email := user.Email
		record := models.ConversationRecord{
			Participant: &models.Participant{ID: user.ID, Name: user.Name, Email: &email},
			Messages:    group.messages,
		}
		if project, ok := projects[group.projectID]; ok {
			record.Project = projectDescriptor(project, payers[project.ID], actorID, key)
		}
		if group.bookingID > 0 {
			record.Booking = &models.Booking{ID: group.bookingID}
		}
		records = append(records, record)
	}

	return records, nil
}

func projectDescriptor(project models.ProjectRow, payers []int64, userIDs ...int64) *models.Project {
	verified := false
	for _, userID := range userIDs {
		if slices.Contains(payers, userID) {
			verified = true
			break
		}
	}
	return &models.Project{
		ID:              project.ID,
		Title:           project.Title,
		Type:            project.Type,
		PaymentVerified: verified,
	}
}

func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	role string,
	participantID int64,
	page int,
	limit int,
) ([]models.Message, int, error) {
	if !canMessage(role) {
		return nil, 0, ErrForbidden
	}
	if participantID <= 0 || participantID == actorID || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	return s.conversationRepo.ListBetween(ctx, actorID, participantID, limit, (page-1)*limit)
}

// MarkConversationRead acknowledges every message participantID sent to
// actorID.
func (s *ChatService) MarkConversationRead(
	ctx context.Context,
	actorID int64,
	role string,
	participantID int64,
) (int64, error) {
	if !canMessage(role) {
		return 0, ErrForbidden
	}
	if participantID <= 0 || participantID == actorID {
		return 0, ErrInvalidInput
	}

	updated, err := s.conversationRepo.MarkRead(ctx, actorID, participantID)
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}
	metrics.ReadAcks.Inc()
	return updated, nil
}

func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID int64,
	role string,
	req models.SendRequest,
) (*ChatDelivery, error) {
	if !canMessage(role) {
		return nil, ErrForbidden
	}
	if req.ReceiverID <= 0 || req.ReceiverID == actorID {
		return nil, ErrInvalidInput
	}

	body := strings.TrimSpace(req.Message)
	if body == "" || utf8.RuneCountInString(body) > maxMessageLength {
		return nil, ErrInvalidInput
	}

	if !s.limiter.Allow(actorID) {
		metrics.SendRejections.WithLabelValues("rate_limited").Inc()
		return nil, ErrRateLimited
	}

	if _, err := s.userRepo.GetByID(ctx, req.ReceiverID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	if req.ReplyTo != nil {
		if err := s.checkReplyTarget(ctx, actorID, req.ReceiverID, *req.ReplyTo); err != nil {
			return nil, err
		}
	}

	var project *models.ProjectRow
	if req.ProjectID != nil {
		found, err := s.projectRepo.GetByID(ctx, *req.ProjectID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInvalidInput
			}
			return nil, err
		}
		project = found
	}

	if req.BookingID != nil {
		booking, err := s.bookingRepo.GetByID(ctx, *req.BookingID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrInvalidInput
			}
			return nil, err
		}
		if project != nil && booking.ProjectID != project.ID {
			return nil, ErrInvalidInput
		}
	}

	message, err := s.messageRepo.Create(ctx, repository.CreateMessageInput{
		ClientID:   req.ClientID,
		SenderID:   actorID,
		ReceiverID: req.ReceiverID,
		Body:       body,
		ProjectID:  req.ProjectID,
		BookingID:  req.BookingID,
		ReplyToID:  req.ReplyTo,
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	metrics.MessagesSent.Inc()

	event := models.MessageEvent{Message: *message}
	if sender, err := s.userRepo.GetByID(ctx, actorID); err == nil {
		event.SenderName = sender.Name
		email := sender.Email
		event.SenderEmail = &email
	} else {
		s.logger.Warn("load sender for event", zap.Int64("sender_id", actorID), zap.Error(err))
	}

	if project != nil {
		payers, err := s.paymentRepo.ListVerifiedPayers(ctx, []int64{project.ID})
		if err != nil {
			return nil, fmt.Errorf("list verified payments: %w", err)
		}
		descriptor := projectDescriptor(*project, payers[project.ID], actorID, req.ReceiverID)
		event.ProjectTitle = descriptor.Title
		event.ProjectType = descriptor.Type
		event.HasPayment = &descriptor.PaymentVerified

		if messaging.Filter(body, descriptor.IsPaid(), descriptor.PaymentVerified).Redacted {
			metrics.MessagesFlagged.Inc()
		}
	} else if messaging.Filter(body, false, false).Redacted {
		metrics.MessagesFlagged.Inc()
	}

	return &ChatDelivery{
		Event:       event,
		RecipientID: req.ReceiverID,
	}, nil
}

func (s *ChatService) checkReplyTarget(ctx context.Context, actorID, receiverID, replyTo int64) error {
	target, err := s.messageRepo.GetByID(ctx, replyTo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidInput
		}
		return err
	}

	samePair := (target.SenderID == actorID && target.ReceiverID == receiverID) ||
		(target.SenderID == receiverID && target.ReceiverID == actorID)
	if !samePair {
		return ErrInvalidInput
	}
	return nil
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
