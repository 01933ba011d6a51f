package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ticketline/deskbot/internal/domain"
)

type DeliveryRepo struct {
	db *pgxpool.Pool
}

func NewDeliveryRepo(db *pgxpool.Pool) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

func (r *DeliveryRepo) Insert(ctx context.Context, e *domain.DeliveryLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO delivery_log (id, external_user_id, message_type, direction, success,
			error_code, error_message, retry_count, ticket_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)`,
		e.ID, e.ExternalUserID, e.MessageType, e.Direction, e.Success,
		e.ErrorCode, e.ErrorMessage, e.RetryCount, e.TicketID, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert delivery log: %w", err)
	}
	return nil
}

// CountMonthlyPushes counts successful outbound entries in [from, to) that
// consume the push quota. A multicast is one logical send, so its single row
// counts like a push row.
func (r *DeliveryRepo) CountMonthlyPushes(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM delivery_log
		WHERE message_type = ANY($1) AND direction = $2 AND success
		  AND created_at >= $3 AND created_at < $4`,
		[]string{string(domain.MessagePush), string(domain.MessageMulticast)},
		domain.DirectionOutbound, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count monthly pushes: %w", err)
	}
	return count, nil
}
