package service

import (
	"context"

	"github.com/ticketline/deskbot/internal/domain"
)

// Narrow collaborator contracts. The repository package provides the
// Postgres-backed defaults; tests substitute stubs.

// TicketCreator creates the permanent record from completed dialog fields.
type TicketCreator interface {
	Create(ctx context.Context, in domain.TicketInput) (string, error)
}

// Directory resolves platform identities to local accounts.
type Directory interface {
	Activate(ctx context.Context, externalID string) (*domain.Binding, error)
	Block(ctx context.Context, externalID string) error
	ByExternalID(ctx context.Context, externalID string) (*domain.Binding, error)
	ByUserID(ctx context.Context, userID int64) (*domain.Binding, error)
}

// Departments lists the units a ticket can be routed to.
type Departments interface {
	ListActive(ctx context.Context) ([]domain.Department, error)
	Get(ctx context.Context, id int64) (*domain.Department, error)
}
