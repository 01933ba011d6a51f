package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ticketline/deskbot/internal/domain"
	"github.com/ticketline/deskbot/internal/line"
)

// memSessionRepo mimics the Postgres session repository, including the
// optimistic version check, against per-call snapshots.
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.DialogSession
	now      func() time.Time
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{
		sessions: map[uuid.UUID]*domain.DialogSession{},
		now:      time.Now,
	}
}

func cloneSession(s *domain.DialogSession) *domain.DialogSession {
	c := *s
	c.Fields = map[string]any{}
	for k, v := range s.Fields {
		c.Fields[k] = v
	}
	return &c
}

func (r *memSessionRepo) GetActiveByExternalID(_ context.Context, externalID string) (*domain.DialogSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ExternalUserID == externalID && s.ExpiresAt.After(r.now()) {
			return cloneSession(s), nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (r *memSessionRepo) Create(_ context.Context, s *domain.DialogSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.ExternalUserID == s.ExternalUserID && existing.ExpiresAt.After(r.now()) {
			return domain.ErrDialogInProgress
		}
	}
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

func (r *memSessionRepo) Update(_ context.Context, s *domain.DialogSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[s.ID]
	if !ok || stored.Version != s.Version {
		return domain.ErrSessionConflict
	}
	c := cloneSession(s)
	c.Version++
	r.sessions[s.ID] = c
	s.Version++
	return nil
}

func (r *memSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id, s := range r.sessions {
		if !s.ExpiresAt.After(now) {
			ids = append(ids, id)
			delete(r.sessions, id)
		}
	}
	return ids, nil
}

type stubTickets struct {
	ticketNo string
	err      error
	created  []domain.TicketInput
}

func (s *stubTickets) Create(_ context.Context, in domain.TicketInput) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.created = append(s.created, in)
	return s.ticketNo, nil
}

type stubDepartments struct {
	deps []domain.Department
}

func (s *stubDepartments) ListActive(_ context.Context) ([]domain.Department, error) {
	var out []domain.Department
	for _, d := range s.deps {
		if d.Active {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *stubDepartments) Get(_ context.Context, id int64) (*domain.Department, error) {
	for _, d := range s.deps {
		if d.ID == id {
			dep := d
			return &dep, nil
		}
	}
	return nil, domain.ErrDepartmentNotFound
}

type stubDialogAttachments struct {
	paths     []string
	detached  int
	discarded int
}

func (s *stubDialogAttachments) Paths(_ context.Context, _ uuid.UUID) ([]string, error) {
	return s.paths, nil
}

func (s *stubDialogAttachments) Detach(_ context.Context, _ uuid.UUID) error {
	s.detached++
	return nil
}

func (s *stubDialogAttachments) Discard(_ context.Context, _ uuid.UUID) error {
	s.discarded++
	return nil
}

type stubMessenger struct {
	pushErrs  []error
	replyErr  error
	pushCalls int
	replies   int
	multis    int
}

func (m *stubMessenger) Push(_ context.Context, _ string, _ []line.Message) error {
	m.pushCalls++
	if len(m.pushErrs) > 0 {
		err := m.pushErrs[0]
		m.pushErrs = m.pushErrs[1:]
		return err
	}
	return nil
}

func (m *stubMessenger) Reply(_ context.Context, _ string, _ []line.Message) error {
	m.replies++
	return m.replyErr
}

func (m *stubMessenger) Multicast(_ context.Context, _ []string, _ []line.Message) error {
	m.multis++
	if len(m.pushErrs) > 0 {
		err := m.pushErrs[0]
		m.pushErrs = m.pushErrs[1:]
		return err
	}
	return nil
}

type memDeliveryLog struct {
	entries []domain.DeliveryLog
}

func (l *memDeliveryLog) Insert(_ context.Context, e *domain.DeliveryLog) error {
	l.entries = append(l.entries, *e)
	return nil
}

// ctxCheckingLog refuses inserts on a done context, like a real pool would.
type ctxCheckingLog struct {
	entries []domain.DeliveryLog
}

func (l *ctxCheckingLog) Insert(ctx context.Context, e *domain.DeliveryLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.entries = append(l.entries, *e)
	return nil
}

// logBackedCounter counts quota usage from logged rows with the repository's
// filter: successful outbound push and multicast entries inside the window.
type logBackedCounter struct {
	log *memDeliveryLog
}

func (c *logBackedCounter) CountMonthlyPushes(_ context.Context, from, to time.Time) (int64, error) {
	var n int64
	for _, e := range c.log.entries {
		if !e.Success || e.Direction != domain.DirectionOutbound {
			continue
		}
		if e.MessageType != domain.MessagePush && e.MessageType != domain.MessageMulticast {
			continue
		}
		if e.CreatedAt.Before(from) || !e.CreatedAt.Before(to) {
			continue
		}
		n++
	}
	return n, nil
}

type stubQuota struct {
	allow bool
	usage Usage
}

func (q *stubQuota) CanSendPush(_ context.Context) (bool, error) { return q.allow, nil }
func (q *stubQuota) Usage(_ context.Context) (Usage, error)      { return q.usage, nil }
func (q *stubQuota) InWarning(u Usage) bool                      { return u.Percent >= 80 }
