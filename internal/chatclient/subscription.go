package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/saeid-a/VolunteerHub/internal/models"
	"go.uber.org/zap"
)

// Subscription reads the private channel and forwards message events in
// arrival order. Read notices and error frames are logged, not forwarded.
type Subscription struct {
	conn   *websocket.Conn
	events chan models.MessageEvent
	logger *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// ChannelURL turns the service base URL into the websocket channel URL.
func ChannelURL(baseURL, token string) (string, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path += "/api/v1/ws"
	query := parsed.Query()
	query.Set("token", token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// Subscribe dials the channel. The returned subscription stays open until
// Close is called or the server goes away.
func Subscribe(ctx context.Context, baseURL, token string, logger *zap.Logger) (*Subscription, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	channelURL, err := ChannelURL(baseURL, token)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, channelURL, nil)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("dial channel: %w", err)
	}

	s := &Subscription{
		conn:   conn,
		events: make(chan models.MessageEvent, 16),
		logger: logger,
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *Subscription) Events() <-chan models.MessageEvent {
	return s.events
}

// SendRead asks the server to mark participantID's messages read over the
// channel instead of the REST endpoint.
func (s *Subscription) SendRead(participantID int64) error {
	return s.conn.WriteJSON(map[string]any{
		"type":           models.ChannelEventRead,
		"participant_id": participantID,
	})
}

func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = s.conn.Close()
	})
	return err
}

func (s *Subscription) readLoop() {
	defer close(s.events)

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Warn("channel closed", zap.Error(err))
			}
			return
		}

		var frame models.ChannelEvent
		if err := json.Unmarshal(payload, &frame); err != nil {
			s.logger.Warn("drop malformed frame", zap.Error(err))
			continue
		}

		switch frame.Type {
		case models.ChannelEventMessage:
			if frame.Message == nil {
				continue
			}
			select {
			case s.events <- *frame.Message:
			case <-s.done:
				return
			}
		case models.ChannelEventRead:
			s.logger.Debug("counterpart read conversation", zap.Int64("participant_id", frame.ParticipantID))
		case models.ChannelEventError:
			s.logger.Warn("channel error", zap.String("error", frame.Error))
		}
	}
}
