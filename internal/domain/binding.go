package domain

import "time"

type BindingStatus string

const (
	BindingActive  BindingStatus = "active"
	BindingBlocked BindingStatus = "blocked"
)

// Binding associates a platform user identity with a local account.
// A blocked binding cannot receive pushes.
type Binding struct {
	UserID         int64
	ExternalUserID string
	Status         BindingStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Department struct {
	ID     int64
	Name   string
	Active bool
}
