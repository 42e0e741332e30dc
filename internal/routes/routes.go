package routes

import (
	"context"
	"errors"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saeid-a/VolunteerHub/internal/config"
	"github.com/saeid-a/VolunteerHub/internal/handlers"
	"github.com/saeid-a/VolunteerHub/internal/middleware"
	"github.com/saeid-a/VolunteerHub/internal/repository"
	"github.com/saeid-a/VolunteerHub/internal/services"
	chatws "github.com/saeid-a/VolunteerHub/internal/websocket"
	"go.uber.org/zap"
)

// RegisterRoutes wires the message service. The channel hub lives until ctx
// is cancelled.
func RegisterRoutes(ctx context.Context, app *fiber.App, cfg *config.Config, db repository.DBTX, logger *zap.Logger) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	chatHub := chatws.NewHub(logger)
	go chatHub.Run(ctx)

	limiter := services.NewSendLimiter(cfg.SendRatePerSecond, cfg.SendBurst)
	chatService := services.NewChatService(
		conversationRepo,
		messageRepo,
		userRepo,
		projectRepo,
		bookingRepo,
		paymentRepo,
		limiter,
		logger.Named("chat"),
	)
	chatHandler := handlers.NewChatHandler(chatService, chatHub, logger.Named("handlers"))

	if cfg.EnableMetrics {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := app.Group("/api")

	// Registered ahead of the /v1 group so header-only auth never sees it.
	api.Get("/v1/ws",
		middleware.QueryOrHeaderAuth(cfg.JWTSecret),
		chatHandler.WebSocketAuth,
		websocket.New(chatHandler.HandleWebSocket),
	)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Get("/:participantId/messages", chatHandler.GetMessages)
	conversations.Post("/:participantId/read", chatHandler.MarkRead)

	authProtected.Post("/messages", chatHandler.SendMessage)

	return nil
}
