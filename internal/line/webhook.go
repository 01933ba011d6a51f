package line

import (
	"encoding/json"
	"fmt"
)

// Event types delivered on the webhook.
const (
	EventFollow   = "follow"
	EventUnfollow = "unfollow"
	EventMessage  = "message"
	EventPostback = "postback"
)

// Message sub-types this bot handles.
const (
	MessageText  = "text"
	MessageImage = "image"
)

type Webhook struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

type Event struct {
	Type       string          `json:"type"`
	ReplyToken string          `json:"replyToken,omitempty"`
	Timestamp  int64           `json:"timestamp"`
	Source     EventSource     `json:"source"`
	Message    *InboundMessage `json:"message,omitempty"`
	Postback   *Postback       `json:"postback,omitempty"`
}

type EventSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// InboundMessage is the message payload carried on an EventMessage event.
type InboundMessage struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type Postback struct {
	Data string `json:"data"`
}

// ParseWebhook decodes the event envelope. A valid envelope may carry zero
// events (the platform sends one when verifying the endpoint).
func ParseWebhook(body []byte) (*Webhook, error) {
	var hook Webhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("parse webhook envelope: %w", err)
	}
	return &hook, nil
}
