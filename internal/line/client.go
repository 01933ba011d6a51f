package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ticketline/deskbot/internal/config"
)

// APIError is a non-2xx response from the platform API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform api: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Client talks to the platform's Messaging API with a channel access token.
type Client struct {
	token       string
	baseURL     string
	dataBaseURL string
	httpClient  *http.Client
}

type Option func(*Client)

func WithEndpoints(apiBase, dataBase string) Option {
	return func(c *Client) {
		c.baseURL = apiBase
		c.dataBaseURL = dataBase
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:       token,
		baseURL:     "https://api.line.me/v2/bot",
		dataBaseURL: "https://api-data.line.me/v2/bot",
		httpClient:  &http.Client{Timeout: config.RequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

type replyRequest struct {
	ReplyToken string    `json:"replyToken"`
	Messages   []Message `json:"messages"`
}

type multicastRequest struct {
	To       []string  `json:"to"`
	Messages []Message `json:"messages"`
}

// Push sends messages to one user without a prior inbound event.
func (c *Client) Push(ctx context.Context, to string, msgs []Message) error {
	return c.post(ctx, "/message/push", pushRequest{To: to, Messages: msgs})
}

// Reply answers an inbound event. Reply tokens are single-use and expire
// within seconds of the event.
func (c *Client) Reply(ctx context.Context, replyToken string, msgs []Message) error {
	return c.post(ctx, "/message/reply", replyRequest{ReplyToken: replyToken, Messages: msgs})
}

// Multicast sends the same messages to several users in one call.
func (c *Client) Multicast(ctx context.Context, to []string, msgs []Message) error {
	return c.post(ctx, "/message/multicast", multicastRequest{To: to, Messages: msgs})
}

// Content downloads the binary body of a received message (e.g. an image).
func (c *Client) Content(ctx context.Context, messageID string) ([]byte, error) {
	url := fmt.Sprintf("%s/message/%s/content", c.dataBaseURL, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return data, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	return nil
}

func apiError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &APIError{StatusCode: resp.StatusCode, Message: string(snippet)}
}
