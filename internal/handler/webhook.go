package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/ticketline/deskbot/internal/config"
	"github.com/ticketline/deskbot/internal/line"
)

// handleWebhook is the platform-facing ingress. Only a bad signature gets a
// non-200 answer: the platform re-delivers events on any other status, and
// duplicate delivery is worse than a swallowed processing error. Event
// processing runs in the background so the response stays inside the
// platform's reply-time budget.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, config.MaxWebhookBody+1))
	if err != nil {
		slog.Error("read webhook body", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}
	if len(body) > config.MaxWebhookBody {
		// A truncated body cannot pass signature verification; a 401 here
		// would only provoke redelivery of the same oversized payload.
		slog.Warn("webhook body over size limit, dropped", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusOK)
		return
	}

	if !line.ValidateSignature(h.cfg.ChannelSecret, body, r.Header.Get(line.SignatureHeader)) {
		slog.Warn("webhook signature rejected", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	hook, err := line.ParseWebhook(body)
	if err != nil {
		slog.Error("unparseable webhook payload", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}
	if len(hook.Events) == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}

	go h.processEvents(hook)

	w.WriteHeader(http.StatusOK)
}

// processEvents runs detached from the HTTP request; its errors can only be
// logged since the response has already been sent.
func (h *Handler) processEvents(hook *line.Webhook) {
	ctx, cancel := context.WithTimeout(context.Background(), config.EventProcessTimeout)
	defer cancel()

	for _, ev := range hook.Events {
		h.processEvent(ctx, ev)
	}
}

// processEvent isolates one event: a panic or error in it must not abort
// sibling events from the same batch.
func (h *Handler) processEvent(ctx context.Context, ev line.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while processing event",
				"type", ev.Type,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	var err error
	switch ev.Type {
	case line.EventFollow:
		err = h.handleFollow(ctx, ev)
	case line.EventUnfollow:
		err = h.handleUnfollow(ctx, ev)
	case line.EventMessage:
		err = h.handleMessage(ctx, ev)
	case line.EventPostback:
		err = h.handlePostback(ctx, ev)
	default:
		slog.Debug("ignoring event", "type", ev.Type)
	}
	if err != nil {
		slog.Error("event processing failed",
			"type", ev.Type,
			"user", ev.Source.UserID,
			"error", err,
		)
	}
}
