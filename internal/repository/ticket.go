package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ticketline/deskbot/internal/domain"
)

type TicketRepo struct {
	db *pgxpool.Pool
}

func NewTicketRepo(db *pgxpool.Pool) *TicketRepo {
	return &TicketRepo{db: db}
}

// Create inserts a ticket from completed dialog fields and returns its
// human-readable ticket number.
func (r *TicketRepo) Create(ctx context.Context, in domain.TicketInput) (string, error) {
	id := uuid.New()
	ticketNo := newTicketNo(id)

	_, err := r.db.Exec(ctx, `
		INSERT INTO tickets (id, ticket_no, title, description, department_id,
			urgency, contact_name, contact_phone, image_refs, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, ticketNo, in.Title, in.Description, in.DepartmentID,
		in.Urgency, in.ContactName, in.ContactPhone, in.ImageRefs, in.CreatedBy)
	if err != nil {
		return "", fmt.Errorf("create ticket: %w", err)
	}
	return ticketNo, nil
}

func newTicketNo(id uuid.UUID) string {
	short := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return fmt.Sprintf("TK-%s-%s", time.Now().UTC().Format("20060102"), short)
}
