package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

type SessionReleaser interface {
	ReleaseSessions(ctx context.Context, ids []uuid.UUID) (int, error)
}

// Reaper sweeps expired dialog sessions on a fixed interval and releases the
// attachments staged for them. A failed sweep is logged and does not stop
// the next one.
type Reaper struct {
	sessions    ExpiredSessionDeleter
	attachments SessionReleaser
	interval    time.Duration
}

func NewReaper(sessions ExpiredSessionDeleter, attachments SessionReleaser, interval time.Duration) *Reaper {
	return &Reaper{sessions: sessions, attachments: attachments, interval: interval}
}

func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				slog.Error("session sweep failed", "error", err)
			}
		}
	}
}

func (r *Reaper) Sweep(ctx context.Context) error {
	ids, err := r.sessions.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	released, err := r.attachments.ReleaseSessions(ctx, ids)
	if err != nil {
		return fmt.Errorf("release attachments: %w", err)
	}
	slog.Info("expired sessions reaped", "sessions", len(ids), "attachments", released)
	return nil
}
