package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ticketline/deskbot/internal/domain"
)

type SessionRepository interface {
	GetActiveByExternalID(ctx context.Context, externalID string) (*domain.DialogSession, error)
	Create(ctx context.Context, s *domain.DialogSession) error
	Update(ctx context.Context, s *domain.DialogSession) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionStore manages the one-active-dialog-per-user invariant and
// serializes read-modify-write cycles for a single user.
type SessionStore struct {
	repo SessionRepository
	ttl  time.Duration
	now  func() time.Time

	mu    sync.Mutex
	locks map[string]*userLock
}

// userLock is refcounted so its map entry can be evicted once no request
// holds or waits on it.
type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewSessionStore(repo SessionRepository, ttl time.Duration) *SessionStore {
	return &SessionStore{
		repo:  repo,
		ttl:   ttl,
		now:   time.Now,
		locks: map[string]*userLock{},
	}
}

// WithUserLock runs fn while holding this user's advisory lock. The lock is
// held only across one read-modify-write, never across outbound sends from
// different requests.
func (s *SessionStore) WithUserLock(externalID string, fn func() error) error {
	lock := s.acquireLock(externalID)
	lock.mu.Lock()
	defer func() {
		lock.mu.Unlock()
		s.releaseLock(externalID, lock)
	}()
	return fn()
}

func (s *SessionStore) acquireLock(externalID string) *userLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[externalID]
	if !ok {
		lock = &userLock{}
		s.locks[externalID] = lock
	}
	lock.refs++
	return lock
}

func (s *SessionStore) releaseLock(externalID string, lock *userLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, externalID)
	}
}

// Begin starts a new dialog. An existing non-expired session is never
// mutated; callers get ErrDialogInProgress and must finish or cancel first.
func (s *SessionStore) Begin(ctx context.Context, externalID string, userID int64) (*domain.DialogSession, error) {
	if _, err := s.repo.GetActiveByExternalID(ctx, externalID); err == nil {
		return nil, domain.ErrDialogInProgress
	} else if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("check active session: %w", err)
	}

	now := s.now().UTC()
	sess := &domain.DialogSession{
		ID:             uuid.New(),
		ExternalUserID: externalID,
		UserID:         userID,
		Step:           domain.StepTitle,
		Fields:         map[string]any{},
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SessionStore) Get(ctx context.Context, externalID string) (*domain.DialogSession, error) {
	return s.repo.GetActiveByExternalID(ctx, externalID)
}

// Save persists the session's step and fields before any reply is sent.
// Each accepted input slides the expiry window forward.
func (s *SessionStore) Save(ctx context.Context, sess *domain.DialogSession) error {
	now := s.now().UTC()
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(s.ttl)
	return s.repo.Update(ctx, sess)
}

func (s *SessionStore) Delete(ctx context.Context, sess *domain.DialogSession) error {
	return s.repo.Delete(ctx, sess.ID)
}
