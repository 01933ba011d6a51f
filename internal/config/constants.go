package config

import "time"

const (
	// Dialog validation bounds
	TitleMinLen       = 5
	TitleMaxLen       = 100
	DescriptionMinLen = 10
	DescriptionMaxLen = 1000
	ContactNameMinLen = 2
	ContactNameMaxLen = 50

	// Dialog keywords
	TriggerKeyword = "new ticket"
	CancelKeyword  = "cancel"
	ConfirmKeyword = "confirm"

	// Push retry policy
	PushMaxAttempts = 3

	// Webhook handling
	MaxWebhookBody      = 1 << 20
	EventProcessTimeout = 60 * time.Second

	// Outbound API timeout
	RequestTimeout = 15 * time.Second

	// Attachments a single session may stage
	MaxSessionAttachments = 5
)

// PushBackoff is the delay before retry attempt n+1.
var PushBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
