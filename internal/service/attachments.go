package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/ticketline/deskbot/internal/config"
	"github.com/ticketline/deskbot/internal/domain"
)

type AttachmentRepository interface {
	Stage(ctx context.Context, sessionID uuid.UUID, path string) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]string, error)
	CountBySession(ctx context.Context, sessionID uuid.UUID) (int64, error)
	ReleaseBySessionIDs(ctx context.Context, ids []uuid.UUID) ([]string, error)
	Detach(ctx context.Context, sessionID uuid.UUID) error
}

type ContentFetcher interface {
	Content(ctx context.Context, messageID string) ([]byte, error)
}

// Attachments stores images sent during a dialog on disk, tracked per
// session so abandoned ones can be cleaned up.
type Attachments struct {
	repo    AttachmentRepository
	content ContentFetcher
	dir     string
}

func NewAttachments(repo AttachmentRepository, content ContentFetcher, dir string) *Attachments {
	return &Attachments{repo: repo, content: content, dir: dir}
}

// Save downloads the image behind messageID and stages it for the session.
func (a *Attachments) Save(ctx context.Context, sessionID uuid.UUID, messageID string) (string, error) {
	count, err := a.repo.CountBySession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if count >= config.MaxSessionAttachments {
		return "", domain.ErrTooManyAttachments
	}

	data, err := a.content.Content(ctx, messageID)
	if err != nil {
		return "", fmt.Errorf("download content: %w", err)
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create attachment dir: %w", err)
	}
	path := filepath.Join(a.dir, uuid.NewString()+".jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}

	if err := a.repo.Stage(ctx, sessionID, path); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func (a *Attachments) Paths(ctx context.Context, sessionID uuid.UUID) ([]string, error) {
	return a.repo.ListBySession(ctx, sessionID)
}

// Detach drops the staging rows but keeps the files; the created ticket now
// owns them.
func (a *Attachments) Detach(ctx context.Context, sessionID uuid.UUID) error {
	return a.repo.Detach(ctx, sessionID)
}

// Discard removes both the staging rows and the files.
func (a *Attachments) Discard(ctx context.Context, sessionID uuid.UUID) error {
	paths, err := a.repo.ReleaseBySessionIDs(ctx, []uuid.UUID{sessionID})
	if err != nil {
		return err
	}
	removeFiles(paths)
	return nil
}

// ReleaseSessions is the reaper-side cleanup for a batch of expired sessions.
func (a *Attachments) ReleaseSessions(ctx context.Context, ids []uuid.UUID) (int, error) {
	paths, err := a.repo.ReleaseBySessionIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	removeFiles(paths)
	return len(paths), nil
}

func removeFiles(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("remove attachment file", "path", p, "error", err)
		}
	}
}
