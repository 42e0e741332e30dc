package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/saeid-a/VolunteerHub/internal/metrics"
	"github.com/saeid-a/VolunteerHub/internal/models"
	"github.com/saeid-a/VolunteerHub/internal/services"
	"go.uber.org/zap"
)

// Hub fans channel events out to every open connection of a user. All
// client bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *envelope
	done       chan struct{}
	logger     *zap.Logger
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	send   chan []byte
}

type envelope struct {
	recipients []int64
	target     *Client
	event      models.ChannelEvent
}

type sender interface {
	SendMessage(ctx context.Context, actorID int64, role string, req models.SendRequest) (*services.ChatDelivery, error)
	MarkConversationRead(ctx context.Context, actorID int64, role string, participantID int64) (int64, error)
}

// inboundFrame is what a connected client may write on its channel.
type inboundFrame struct {
	Type          string `json:"type"`
	ParticipantID int64  `json:"participant_id"`
	models.SendRequest
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *envelope, 64),
		done:       make(chan struct{}),
		logger:     logger.Named("hub"),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

// Run serves registrations and deliveries until ctx is done, then closes
// every client's outbound queue.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for userID, set := range h.clients {
				for client := range set {
					h.drop(set, client)
				}
				delete(h.clients, userID)
			}
			return
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
			metrics.WSClients.Inc()
			h.logger.Debug("client registered", zap.Int64("user_id", client.userID))
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				h.drop(set, client)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// PublishMessage pushes a stored message to both sides of its conversation,
// so the sender's other devices see it too.
func (h *Hub) PublishMessage(delivery *services.ChatDelivery) {
	if delivery == nil {
		return
	}
	event := delivery.Event
	h.publish(&envelope{
		recipients: []int64{delivery.RecipientID, event.SenderID},
		event: models.ChannelEvent{
			Type:      models.ChannelEventMessage,
			Message:   &event,
			Timestamp: services.FormatChatTimestamp(event.CreatedAt),
		},
	})
}

// PublishRead tells counterpartID that readerID has read their messages.
func (h *Hub) PublishRead(readerID, counterpartID int64) {
	h.publish(&envelope{
		recipients: []int64{counterpartID},
		event: models.ChannelEvent{
			Type:          models.ChannelEventRead,
			ParticipantID: readerID,
			Timestamp:     services.FormatChatTimestamp(time.Now()),
		},
	})
}

func (h *Hub) publish(env *envelope) {
	select {
	case h.broadcast <- env:
	case <-h.done:
	}
}

func (h *Hub) deliver(env *envelope) {
	encoded, err := json.Marshal(env.event)
	if err != nil {
		h.logger.Error("encode channel event", zap.Error(err))
		return
	}

	if env.target != nil {
		set := h.clients[env.target.userID]
		if _, ok := set[env.target]; ok {
			select {
			case env.target.send <- encoded:
			default:
			}
		}
		return
	}

	seen := make(map[int64]struct{}, len(env.recipients))
	for _, userID := range env.recipients {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		h.sendToUser(userID, encoded)
	}
}

func (h *Hub) sendToUser(userID int64, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			h.logger.Warn("dropping slow client", zap.Int64("user_id", userID))
			h.drop(set, client)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) drop(set map[*Client]struct{}, client *Client) {
	delete(set, client)
	close(client.send)
	metrics.WSClients.Dec()
}

func (c *Client) ReadPump(service sender, role string) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleFrame(context.Background(), service, role, payload)
	}
}

func (c *Client) handleFrame(ctx context.Context, service sender, role string, payload []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		c.writeError("invalid message payload")
		return
	}

	switch frame.Type {
	case models.ChannelEventMessage:
		delivery, err := service.SendMessage(ctx, c.userID, role, frame.SendRequest)
		if err != nil {
			c.writeError(errorText(err))
			return
		}
		c.hub.PublishMessage(delivery)
	case models.ChannelEventRead:
		if _, err := service.MarkConversationRead(ctx, c.userID, role, frame.ParticipantID); err != nil {
			c.writeError(errorText(err))
			return
		}
		c.hub.PublishRead(c.userID, frame.ParticipantID)
	default:
		c.writeError("unsupported message type")
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return "forbidden"
	case errors.Is(err, services.ErrInvalidInput):
		return "invalid request"
	case errors.Is(err, services.ErrRecipientNotFound):
		return "recipient not found"
	case errors.Is(err, services.ErrRateLimited):
		return "rate limited"
	default:
		return "failed to process message"
	}
}

// writeError answers only this connection. It goes through the hub so the
// queue is never written after the hub closed it.
func (c *Client) writeError(message string) {
	c.hub.publish(&envelope{
		target: c,
		event: models.ChannelEvent{
			Type:      models.ChannelEventError,
			Error:     message,
			Timestamp: services.FormatChatTimestamp(time.Now()),
		},
	})
}
