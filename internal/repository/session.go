package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ticketline/deskbot/internal/domain"
)

type SessionRepo struct {
	db *pgxpool.Pool
}

func NewSessionRepo(db *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{db: db}
}

// GetActiveByExternalID returns the user's non-expired session.
func (r *SessionRepo) GetActiveByExternalID(ctx context.Context, externalID string) (*domain.DialogSession, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, external_user_id, user_id, step, fields, version, created_at, updated_at, expires_at
		FROM dialog_sessions
		WHERE external_user_id = $1 AND expires_at > now()`,
		externalID)
	return scanSession(row)
}

// Create inserts a new session. A leftover expired row for the same user is
// removed first; a concurrent active row maps to ErrDialogInProgress.
func (r *SessionRepo) Create(ctx context.Context, s *domain.DialogSession) error {
	if _, err := r.db.Exec(ctx, `
		DELETE FROM dialog_sessions
		WHERE external_user_id = $1 AND expires_at <= now()`,
		s.ExternalUserID); err != nil {
		return fmt.Errorf("purge expired session: %w", err)
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO dialog_sessions (id, external_user_id, user_id, step, fields, version, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.ExternalUserID, s.UserID, s.Step, s.Fields, s.Version, s.CreatedAt, s.UpdatedAt, s.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDialogInProgress
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Update persists step/fields with optimistic concurrency on version.
// A stale snapshot writes zero rows and returns ErrSessionConflict.
func (r *SessionRepo) Update(ctx context.Context, s *domain.DialogSession) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE dialog_sessions
		SET step = $1, fields = $2, version = version + 1, updated_at = $3, expires_at = $4
		WHERE id = $5 AND version = $6`,
		s.Step, s.Fields, s.UpdatedAt, s.ExpiresAt, s.ID, s.Version)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionConflict
	}
	s.Version++
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM dialog_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry and reports the reaped ids
// so transient attachments can be released.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		DELETE FROM dialog_sessions WHERE expires_at <= $1 RETURNING id`, now)
	if err != nil {
		return nil, fmt.Errorf("delete expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reaped session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanSession(row pgx.Row) (*domain.DialogSession, error) {
	var s domain.DialogSession
	err := row.Scan(&s.ID, &s.ExternalUserID, &s.UserID, &s.Step, &s.Fields,
		&s.Version, &s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}
