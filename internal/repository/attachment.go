package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttachmentRepo tracks images staged on disk while a dialog is in progress.
// Rows are released when the session completes, cancels, or is reaped.
type AttachmentRepo struct {
	db *pgxpool.Pool
}

func NewAttachmentRepo(db *pgxpool.Pool) *AttachmentRepo {
	return &AttachmentRepo{db: db}
}

func (r *AttachmentRepo) Stage(ctx context.Context, sessionID uuid.UUID, path string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO session_attachments (id, session_id, storage_path)
		VALUES ($1, $2, $3)`,
		uuid.New(), sessionID, path)
	if err != nil {
		return fmt.Errorf("stage attachment: %w", err)
	}
	return nil
}

func (r *AttachmentRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT storage_path FROM session_attachments
		WHERE session_id = $1 ORDER BY created_at`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan attachment path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (r *AttachmentRepo) CountBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM session_attachments WHERE session_id = $1`,
		sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attachments: %w", err)
	}
	return count, nil
}

// ReleaseBySessionIDs deletes staging rows for the given sessions and returns
// the orphaned file paths so the caller can remove them from disk.
func (r *AttachmentRepo) ReleaseBySessionIDs(ctx context.Context, ids []uuid.UUID) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `
		DELETE FROM session_attachments
		WHERE session_id = ANY($1) RETURNING storage_path`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("release attachments: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan released path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Detach drops staging rows without reporting paths, used when the files have
// been handed over to a created ticket.
func (r *AttachmentRepo) Detach(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM session_attachments WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("detach attachments: %w", err)
	}
	return nil
}
