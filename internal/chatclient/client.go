// Package chatclient talks to the message service over its REST API and
// private websocket channel.
package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/saeid-a/VolunteerHub/internal/models"
	"github.com/valyala/fasthttp"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the message service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("message service returned %d", e.Status)
	}
	return fmt.Sprintf("message service returned %d: %s", e.Status, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

type APIClient struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *fasthttp.Client
}

type ClientOption func(*APIClient)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *APIClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewAPIClient(baseURL, token string, opts ...ClientOption) *APIClient {
	c := &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: defaultTimeout,
		http: &fasthttp.Client{
			Name:                "volunteerhub-messenger",
			MaxIdleConnDuration: time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadConversations fetches the initial conversation batch for the token's
// user.
func (c *APIClient) LoadConversations(ctx context.Context) ([]models.ConversationRecord, error) {
	var body struct {
		Conversations []models.ConversationRecord `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/conversations", nil, &body); err != nil {
		return nil, err
	}
	return body.Conversations, nil
}

// LoadMessages pages through one conversation, newest first.
func (c *APIClient) LoadMessages(ctx context.Context, participantID int64, page, limit int) ([]models.Message, models.PaginationMeta, error) {
	var body struct {
		Messages   []models.Message      `json:"messages"`
		Pagination models.PaginationMeta `json:"pagination"`
	}
	path := fmt.Sprintf("/api/v1/conversations/%d/messages?page=%d&limit=%d", participantID, page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, models.PaginationMeta{}, err
	}
	return body.Messages, body.Pagination, nil
}

func (c *APIClient) Send(ctx context.Context, req models.SendRequest) (*models.Message, error) {
	var body struct {
		Message models.Message `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/messages", req, &body); err != nil {
		return nil, err
	}
	return &body.Message, nil
}

func (c *APIClient) AcknowledgeRead(ctx context.Context, participantID int64) error {
	path := "/api/v1/conversations/" + strconv.FormatInt(participantID, 10) + "/read"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(resp.Body(), &body)
		return &APIError{Status: status, Message: body.Error}
	}

	if out == nil || status == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
