package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/ticketline/deskbot/internal/config"
	"github.com/ticketline/deskbot/internal/domain"
	"github.com/ticketline/deskbot/internal/line"
	"github.com/ticketline/deskbot/internal/service"
)

// DialogEngine drives the ticket-creation conversation.
type DialogEngine interface {
	Start(ctx context.Context, externalID string, userID int64) (service.Result, error)
	HandleInput(ctx context.Context, sess *domain.DialogSession, in service.Input) (service.Result, error)
	Cancel(ctx context.Context, sess *domain.DialogSession) (service.Result, error)
}

// Sessions looks up active dialogs and serializes per-user processing.
type Sessions interface {
	Get(ctx context.Context, externalID string) (*domain.DialogSession, error)
	WithUserLock(externalID string, fn func() error) error
}

// Gateway delivers outbound messages with logging, retry, and quota checks.
type Gateway interface {
	Reply(ctx context.Context, replyToken, externalID string, msgs ...line.Message) error
	PushTicketEvent(ctx context.Context, externalID string, ticketID uuid.UUID, ticketNo string, event domain.TicketEvent) error
	Multicast(ctx context.Context, externalIDs []string, text string) error
}

// AttachmentSaver stages inbound images against a session.
type AttachmentSaver interface {
	Save(ctx context.Context, sessionID uuid.UUID, messageID string) (string, error)
}

// Handler holds all dependencies needed by the webhook and notify endpoints.
type Handler struct {
	cfg         *config.Config
	dialog      DialogEngine
	sessions    Sessions
	gateway     Gateway
	directory   service.Directory
	attachments AttachmentSaver
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Cfg         *config.Config
	Dialog      DialogEngine
	Sessions    Sessions
	Gateway     Gateway
	Directory   service.Directory
	Attachments AttachmentSaver
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		cfg:         deps.Cfg,
		dialog:      deps.Dialog,
		sessions:    deps.Sessions,
		gateway:     deps.Gateway,
		directory:   deps.Directory,
		attachments: deps.Attachments,
	}
}

// Routes builds the HTTP mux for the service.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", h.handleWebhook)
	mux.HandleFunc("POST /notify", h.handleNotify)
	mux.HandleFunc("POST /announce", h.handleAnnounce)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	return mux
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
