package domain

import (
	"strings"

	"github.com/google/uuid"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ParseUrgency matches a literal urgency token, case-insensitively.
func ParseUrgency(s string) (Urgency, bool) {
	switch Urgency(strings.ToLower(strings.TrimSpace(s))) {
	case UrgencyLow:
		return UrgencyLow, true
	case UrgencyMedium:
		return UrgencyMedium, true
	case UrgencyHigh:
		return UrgencyHigh, true
	default:
		return "", false
	}
}

// TicketInput carries the fields collected by a completed dialog.
type TicketInput struct {
	Title        string
	Description  string
	DepartmentID int64
	Urgency      Urgency
	ContactName  string
	ContactPhone string
	ImageRefs    []string
	CreatedBy    int64
}

// Ticket lifecycle events that trigger a notification push.
type TicketEvent string

const (
	TicketCreated       TicketEvent = "created"
	TicketStatusChanged TicketEvent = "status_changed"
	TicketReassigned    TicketEvent = "reassigned"
)

type Ticket struct {
	ID       uuid.UUID
	TicketNo string
	TicketInput
}
