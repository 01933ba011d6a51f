package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ticketline/deskbot/internal/config"
	"github.com/ticketline/deskbot/internal/domain"
	"github.com/ticketline/deskbot/internal/line"
)

type Messenger interface {
	Push(ctx context.Context, to string, msgs []line.Message) error
	Reply(ctx context.Context, replyToken string, msgs []line.Message) error
	Multicast(ctx context.Context, to []string, msgs []line.Message) error
}

type DeliveryLogger interface {
	Insert(ctx context.Context, e *domain.DeliveryLog) error
}

type QuotaChecker interface {
	CanSendPush(ctx context.Context) (bool, error)
	Usage(ctx context.Context) (Usage, error)
	InWarning(u Usage) bool
}

// Gateway sends messages through the platform API. Every logical send,
// success or failure, produces exactly one delivery-log entry.
type Gateway struct {
	api   Messenger
	log   DeliveryLogger
	quota QuotaChecker

	maxAttempts int
	backoff     []time.Duration
}

func NewGateway(api Messenger, log DeliveryLogger, quota QuotaChecker) *Gateway {
	return &Gateway{
		api:         api,
		log:         log,
		quota:       quota,
		maxAttempts: config.PushMaxAttempts,
		backoff:     config.PushBackoff,
	}
}

// Reply answers an inbound event. Reply tokens are single-use and expire in
// seconds, so a failed reply is logged, never retried.
func (g *Gateway) Reply(ctx context.Context, replyToken, externalID string, msgs ...line.Message) error {
	err := g.api.Reply(ctx, replyToken, msgs)
	g.record(ctx, &domain.DeliveryLog{
		ExternalUserID: externalID,
		MessageType:    domain.MessageReply,
	}, err, 0)
	if err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

// PushText pushes a plain text message under the retry and quota policy.
func (g *Gateway) PushText(ctx context.Context, externalID, text string) error {
	return g.push(ctx, externalID, nil, line.Text(text))
}

// PushTicketEvent notifies a user about a ticket lifecycle change.
func (g *Gateway) PushTicketEvent(ctx context.Context, externalID string, ticketID uuid.UUID, ticketNo string, event domain.TicketEvent) error {
	return g.push(ctx, externalID, &ticketID, line.Text(ticketEventText(ticketNo, event)))
}

// Multicast sends one announcement to several users. It counts as a single
// logical push against the quota and produces one log entry.
func (g *Gateway) Multicast(ctx context.Context, externalIDs []string, text string) error {
	entry := &domain.DeliveryLog{
		ExternalUserID: strings.Join(externalIDs, ","),
		MessageType:    domain.MessageMulticast,
	}

	ok, err := g.quota.CanSendPush(ctx)
	if err != nil {
		return fmt.Errorf("quota check: %w", err)
	}
	if !ok {
		g.record(ctx, entry, domain.ErrQuotaExceeded, 0)
		return domain.ErrQuotaExceeded
	}

	msgs := []line.Message{line.Text(text)}
	attempts, sendErr := g.withRetry(ctx, func() error {
		return g.api.Multicast(ctx, externalIDs, msgs)
	})
	g.record(ctx, entry, sendErr, attempts-1)
	if sendErr != nil {
		return fmt.Errorf("multicast: %w", sendErr)
	}
	g.warnIfNearQuota(ctx)
	return nil
}

func (g *Gateway) push(ctx context.Context, externalID string, ticketID *uuid.UUID, msgs ...line.Message) error {
	entry := &domain.DeliveryLog{
		ExternalUserID: externalID,
		MessageType:    domain.MessagePush,
		TicketID:       ticketID,
	}

	ok, err := g.quota.CanSendPush(ctx)
	if err != nil {
		return fmt.Errorf("quota check: %w", err)
	}
	if !ok {
		g.record(ctx, entry, domain.ErrQuotaExceeded, 0)
		return domain.ErrQuotaExceeded
	}

	attempts, sendErr := g.withRetry(ctx, func() error {
		return g.api.Push(ctx, externalID, msgs)
	})
	g.record(ctx, entry, sendErr, attempts-1)
	if sendErr != nil {
		return fmt.Errorf("push: %w", sendErr)
	}
	g.warnIfNearQuota(ctx)
	return nil
}

// withRetry runs send up to maxAttempts times with exponential backoff.
// The backoff sleep aborts when ctx is cancelled, e.g. on shutdown.
func (g *Gateway) withRetry(ctx context.Context, send func() error) (int, error) {
	var err error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		err = send()
		if err == nil {
			return attempt, nil
		}
		if attempt == g.maxAttempts {
			break
		}
		slog.Warn("send failed, retrying",
			"attempt", attempt,
			"backoff", g.backoff[attempt-1],
			"error", err,
		)
		if sleepErr := sleepCtx(ctx, g.backoff[attempt-1]); sleepErr != nil {
			return attempt, err
		}
	}
	return g.maxAttempts, err
}

// record writes the single delivery-log row for one logical send. Logging
// failures must not mask the send outcome, so they are only logged. The
// insert runs detached from the caller's cancellation: a send aborted by
// shutdown or a dropped client still gets its one row.
func (g *Gateway) record(ctx context.Context, entry *domain.DeliveryLog, sendErr error, retries int) {
	ctx = context.WithoutCancel(ctx)
	entry.ID = uuid.New()
	entry.Direction = domain.DirectionOutbound
	entry.Success = sendErr == nil
	entry.RetryCount = retries
	entry.CreatedAt = time.Now().UTC()
	if sendErr != nil {
		entry.ErrorCode = errorCode(sendErr)
		entry.ErrorMessage = sendErr.Error()
	}
	if err := g.log.Insert(ctx, entry); err != nil {
		slog.Error("insert delivery log", "error", err, "message_type", entry.MessageType)
	}
}

func (g *Gateway) warnIfNearQuota(ctx context.Context) {
	u, err := g.quota.Usage(ctx)
	if err != nil {
		slog.Error("quota usage check", "error", err)
		return
	}
	if g.quota.InWarning(u) {
		slog.Warn("monthly push quota nearing limit",
			"used", u.Used,
			"limit", u.Limit,
			"percent", u.Percent,
		)
	}
}

func errorCode(err error) string {
	if errors.Is(err, domain.ErrQuotaExceeded) {
		return domain.ErrCodeQuotaExceeded
	}
	var apiErr *line.APIError
	if errors.As(err, &apiErr) {
		if apiErr.RateLimited() {
			return domain.ErrCodeRateLimited
		}
		return domain.ErrCodeAPIError
	}
	return domain.ErrCodeNetwork
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func ticketEventText(ticketNo string, event domain.TicketEvent) string {
	switch event {
	case domain.TicketCreated:
		return fmt.Sprintf("Ticket %s has been created and routed to the responsible department.", ticketNo)
	case domain.TicketStatusChanged:
		return fmt.Sprintf("Ticket %s changed status. Check with the handling department for details.", ticketNo)
	case domain.TicketReassigned:
		return fmt.Sprintf("Ticket %s has been reassigned to another department.", ticketNo)
	default:
		return fmt.Sprintf("Ticket %s was updated.", ticketNo)
	}
}
