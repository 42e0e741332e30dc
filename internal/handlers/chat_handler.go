package handlers

import (
	"context"
	"errors"
	"strconv"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/VolunteerHub/internal/middleware"
	"github.com/saeid-a/VolunteerHub/internal/models"
	"github.com/saeid-a/VolunteerHub/internal/services"
	chatws "github.com/saeid-a/VolunteerHub/internal/websocket"
	"go.uber.org/zap"
)

type chatApplicationService interface {
	ListConversations(ctx context.Context, actorID int64, role string) ([]models.ConversationRecord, error)
	ListMessages(ctx context.Context, actorID int64, role string, participantID int64, page int, limit int) ([]models.Message, int, error)
	MarkConversationRead(ctx context.Context, actorID int64, role string, participantID int64) (int64, error)
	SendMessage(ctx context.Context, actorID int64, role string, req models.SendRequest) (*services.ChatDelivery, error)
}

type ChatHandler struct {
	service chatApplicationService
	hub     *chatws.Hub
	logger  *zap.Logger
}

func NewChatHandler(service chatApplicationService, hub *chatws.Hub, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	userID, role, ok := currentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversations, err := h.service.ListConversations(c.Context(), userID, role)
	if err != nil {
		return h.mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userID, role, ok := currentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	participantID, err := strconv.ParseInt(c.Params("participantId"), 10, 64)
	if err != nil || participantID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid participant id"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := min(parsePositiveInt(c.Query("limit"), defaultPageLimit), maxPageLimit)

	messages, total, err := h.service.ListMessages(c.Context(), userID, role, participantID, page, limit)
	if err != nil {
		return h.mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	userID, role, ok := currentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	participantID, err := strconv.ParseInt(c.Params("participantId"), 10, 64)
	if err != nil || participantID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid participant id"})
	}

	if _, err := h.service.MarkConversationRead(c.Context(), userID, role, participantID); err != nil {
		return h.mapChatError(c, err)
	}
	h.hub.PublishRead(userID, participantID)

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, role, ok := currentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req models.SendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	delivery, err := h.service.SendMessage(c.Context(), userID, role, req)
	if err != nil {
		return h.mapChatError(c, err)
	}
	h.hub.PublishMessage(delivery)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": delivery.Event.Message})
}

// WebSocketAuth rejects plain HTTP requests on the channel route. It runs
// after token authentication.
func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}
	if _, _, ok := currentUser(c); !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals(middleware.LocalUserID).(int64)
	role, _ := conn.Locals(middleware.LocalRole).(string)
	client := chatws.NewClient(h.hub, conn, userID)

	h.logger.Debug("channel opened", zap.Int64("user_id", userID))
	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(h.service, role)
	h.logger.Debug("channel closed", zap.Int64("user_id", userID))
}

func currentUser(c *fiber.Ctx) (int64, string, bool) {
	userID, ok := c.Locals(middleware.LocalUserID).(int64)
	if !ok || userID <= 0 {
		return 0, "", false
	}
	role, _ := c.Locals(middleware.LocalRole).(string)
	return userID, role, true
}

func (h *ChatHandler) mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrRecipientNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Recipient not found"})
	case errors.Is(err, services.ErrRateLimited):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many messages, slow down"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	default:
		h.logger.Error("chat request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
