package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessagePush      MessageType = "push"
	MessageReply     MessageType = "reply"
	MessageMulticast MessageType = "multicast"
)

type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// Delivery error codes recorded on failed attempts.
const (
	ErrCodeQuotaExceeded = "quota_exceeded"
	ErrCodeRateLimited   = "rate_limited"
	ErrCodeAPIError      = "api_error"
	ErrCodeNetwork       = "network_error"
)

// DeliveryLog is the append-only record of one logical send to the platform.
// A retried push still produces exactly one entry carrying the terminal
// retry count and last error.
type DeliveryLog struct {
	ID             uuid.UUID
	ExternalUserID string
	MessageType    MessageType
	Direction      Direction
	Success        bool
	ErrorCode      string
	ErrorMessage   string
	RetryCount     int
	TicketID       *uuid.UUID
	CreatedAt      time.Time
}
