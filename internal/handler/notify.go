package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/ticketline/deskbot/internal/domain"
)

type notifyRequest struct {
	UserID   int64  `json:"userId"`
	TicketID string `json:"ticketId"`
	TicketNo string `json:"ticketNo"`
	Event    string `json:"event"`
}

// handleNotify is the internal endpoint the ticket system calls when a
// ticket changes (created, status change, reassignment). It resolves the
// user's binding and pushes a notification under the quota/retry policy.
func (h *Handler) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	ticketID, err := uuid.Parse(req.TicketID)
	if err != nil {
		http.Error(w, "invalid ticket id", http.StatusBadRequest)
		return
	}

	binding, err := h.directory.ByUserID(r.Context(), req.UserID)
	if errors.Is(err, domain.ErrBindingNotFound) {
		http.Error(w, "user has no binding", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("resolve binding", "user_id", req.UserID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if binding.Status == domain.BindingBlocked {
		http.Error(w, "binding blocked", http.StatusConflict)
		return
	}

	err = h.gateway.PushTicketEvent(r.Context(), binding.ExternalUserID,
		ticketID, req.TicketNo, domain.TicketEvent(req.Event))
	if errors.Is(err, domain.ErrQuotaExceeded) {
		http.Error(w, "push quota exceeded", http.StatusTooManyRequests)
		return
	}
	if err != nil {
		slog.Error("push ticket event", "ticket_no", req.TicketNo, "error", err)
		http.Error(w, "delivery failed", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type announceRequest struct {
	UserIDs []int64 `json:"userIds"`
	Text    string  `json:"text"`
}

// handleAnnounce multicasts one message to several bound users, e.g. a
// department-wide maintenance notice.
func (h *Handler) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	var req announceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if len(req.UserIDs) == 0 || req.Text == "" {
		http.Error(w, "userIds and text are required", http.StatusBadRequest)
		return
	}

	externalIDs := make([]string, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		binding, err := h.directory.ByUserID(r.Context(), id)
		if errors.Is(err, domain.ErrBindingNotFound) {
			continue
		}
		if err != nil {
			slog.Error("resolve binding", "user_id", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if binding.Status == domain.BindingActive {
			externalIDs = append(externalIDs, binding.ExternalUserID)
		}
	}
	if len(externalIDs) == 0 {
		http.Error(w, "no reachable users", http.StatusNotFound)
		return
	}

	err := h.gateway.Multicast(r.Context(), externalIDs, req.Text)
	if errors.Is(err, domain.ErrQuotaExceeded) {
		http.Error(w, "push quota exceeded", http.StatusTooManyRequests)
		return
	}
	if err != nil {
		slog.Error("multicast announcement", "error", err)
		http.Error(w, "delivery failed", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
