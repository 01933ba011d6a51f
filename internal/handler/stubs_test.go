package handler

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/ticketline/deskbot/internal/domain"
	"github.com/ticketline/deskbot/internal/line"
	"github.com/ticketline/deskbot/internal/service"
)

type stubDialog struct {
	mu        sync.Mutex
	panicUser string
	starts    []string
	inputs    []service.Input
	result    service.Result
}

func (d *stubDialog) Start(_ context.Context, externalID string, _ int64) (service.Result, error) {
	if externalID == d.panicUser {
		panic("dialog blew up")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.starts = append(d.starts, externalID)
	return d.result, nil
}

func (d *stubDialog) HandleInput(_ context.Context, _ *domain.DialogSession, in service.Input) (service.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inputs = append(d.inputs, in)
	return d.result, nil
}

func (d *stubDialog) Cancel(_ context.Context, _ *domain.DialogSession) (service.Result, error) {
	return service.Result{Cancelled: true}, nil
}

type stubSessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.DialogSession
}

func (s *stubSessions) Get(_ context.Context, externalID string) (*domain.DialogSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[externalID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *stubSessions) WithUserLock(_ string, fn func() error) error {
	return fn()
}

type replyCall struct {
	token      string
	externalID string
	msgs       []line.Message
}

type stubGateway struct {
	mu      sync.Mutex
	replies []replyCall
	pushes  []string
	multis  [][]string
	pushErr error
	replied chan struct{}
}

func newStubGateway() *stubGateway {
	return &stubGateway{replied: make(chan struct{}, 16)}
}

func (g *stubGateway) Reply(_ context.Context, token, externalID string, msgs ...line.Message) error {
	g.mu.Lock()
	g.replies = append(g.replies, replyCall{token: token, externalID: externalID, msgs: msgs})
	g.mu.Unlock()
	g.replied <- struct{}{}
	return nil
}

func (g *stubGateway) PushTicketEvent(_ context.Context, externalID string, _ uuid.UUID, _ string, _ domain.TicketEvent) error {
	if g.pushErr != nil {
		return g.pushErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pushes = append(g.pushes, externalID)
	return nil
}

func (g *stubGateway) Multicast(_ context.Context, externalIDs []string, _ string) error {
	if g.pushErr != nil {
		return g.pushErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.multis = append(g.multis, externalIDs)
	return nil
}

func (g *stubGateway) lastReply() replyCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.replies[len(g.replies)-1]
}

type stubDirectory struct {
	mu        sync.Mutex
	bindings  map[int64]*domain.Binding
	activated []string
	blocked   []string
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{bindings: map[int64]*domain.Binding{}}
}

func (d *stubDirectory) Activate(_ context.Context, externalID string) (*domain.Binding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.activated = append(d.activated, externalID)
	return &domain.Binding{UserID: 7, ExternalUserID: externalID, Status: domain.BindingActive}, nil
}

func (d *stubDirectory) Block(_ context.Context, externalID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blocked = append(d.blocked, externalID)
	return nil
}

func (d *stubDirectory) ByExternalID(_ context.Context, externalID string) (*domain.Binding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.bindings {
		if b.ExternalUserID == externalID {
			return b, nil
		}
	}
	return nil, domain.ErrBindingNotFound
}

func (d *stubDirectory) ByUserID(_ context.Context, userID int64) (*domain.Binding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.bindings[userID]
	if !ok {
		return nil, domain.ErrBindingNotFound
	}
	return b, nil
}

type stubSaver struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (s *stubSaver) Save(_ context.Context, _ uuid.UUID, messageID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, messageID)
	return "/tmp/" + messageID + ".jpg", nil
}
