package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ticketline/deskbot/internal/config"
	"github.com/ticketline/deskbot/internal/domain"
	"github.com/ticketline/deskbot/internal/line"
	"github.com/ticketline/deskbot/internal/service"
)

func (h *Handler) handleFollow(ctx context.Context, ev line.Event) error {
	if _, err := h.directory.Activate(ctx, ev.Source.UserID); err != nil {
		return fmt.Errorf("activate binding: %w", err)
	}
	welcome := fmt.Sprintf(
		"Hi! I'm the helpdesk bot.\n\nSend \"%s\" to report an issue and I'll walk you through it step by step. Send \"%s\" at any point to abort.",
		config.TriggerKeyword, config.CancelKeyword)
	return h.gateway.Reply(ctx, ev.ReplyToken, ev.Source.UserID, line.Text(welcome))
}

func (h *Handler) handleUnfollow(ctx context.Context, ev line.Event) error {
	err := h.directory.Block(ctx, ev.Source.UserID)
	if errors.Is(err, domain.ErrBindingNotFound) {
		return nil
	}
	return err
}

func (h *Handler) handleMessage(ctx context.Context, ev line.Event) error {
	if ev.Message == nil {
		return nil
	}
	switch ev.Message.Type {
	case line.MessageText:
		return h.handleText(ctx, ev)
	case line.MessageImage:
		return h.handleImage(ctx, ev)
	default:
		return h.gateway.Reply(ctx, ev.ReplyToken, ev.Source.UserID,
			line.Text("I can only work with text messages and photos."))
	}
}

func (h *Handler) handleText(ctx context.Context, ev line.Event) error {
	externalID := ev.Source.UserID
	binding, err := h.directory.Activate(ctx, externalID)
	if err != nil {
		return fmt.Errorf("resolve binding: %w", err)
	}

	text := strings.TrimSpace(ev.Message.Text)
	isTrigger := strings.EqualFold(text, config.TriggerKeyword)

	var result service.Result
	err = h.sessions.WithUserLock(externalID, func() error {
		sess, getErr := h.sessions.Get(ctx, externalID)
		switch {
		case isTrigger && getErr == nil:
			result = dialogInProgressResult()
			return nil
		case isTrigger:
			var startErr error
			result, startErr = h.dialog.Start(ctx, externalID, binding.UserID)
			if errors.Is(startErr, domain.ErrDialogInProgress) {
				result = dialogInProgressResult()
				return nil
			}
			return startErr
		case getErr == nil:
			var inputErr error
			result, inputErr = h.dialog.HandleInput(ctx, sess, service.TextInput(text))
			return inputErr
		case errors.Is(getErr, domain.ErrSessionNotFound):
			result = helpResult()
			return nil
		default:
			return getErr
		}
	})
	if err != nil {
		return err
	}
	return h.gateway.Reply(ctx, ev.ReplyToken, externalID, result.Messages...)
}

func (h *Handler) handleImage(ctx context.Context, ev line.Event) error {
	externalID := ev.Source.UserID

	var reply line.Message
	err := h.sessions.WithUserLock(externalID, func() error {
		sess, err := h.sessions.Get(ctx, externalID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			reply = line.Text(fmt.Sprintf(
				"I can attach photos once a ticket is in progress. Send \"%s\" to start one.", config.TriggerKeyword))
			return nil
		}
		if err != nil {
			return err
		}

		_, err = h.attachments.Save(ctx, sess.ID, ev.Message.ID)
		if errors.Is(err, domain.ErrTooManyAttachments) {
			reply = line.Text(fmt.Sprintf(
				"A ticket can carry at most %d photos.", config.MaxSessionAttachments))
			return nil
		}
		if err != nil {
			return fmt.Errorf("save attachment: %w", err)
		}
		reply = line.Text("Photo attached to your ticket draft.")
		return nil
	})
	if err != nil {
		return err
	}
	return h.gateway.Reply(ctx, ev.ReplyToken, externalID, reply)
}

func (h *Handler) handlePostback(ctx context.Context, ev line.Event) error {
	if ev.Postback == nil {
		return nil
	}
	externalID := ev.Source.UserID

	var result service.Result
	err := h.sessions.WithUserLock(externalID, func() error {
		sess, err := h.sessions.Get(ctx, externalID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			result = helpResult()
			return nil
		}
		if err != nil {
			return err
		}
		result, err = h.dialog.HandleInput(ctx, sess, service.PostbackInput(ev.Postback.Data))
		return err
	})
	if err != nil {
		return err
	}
	return h.gateway.Reply(ctx, ev.ReplyToken, externalID, result.Messages...)
}

func dialogInProgressResult() service.Result {
	return service.Result{Messages: []line.Message{line.Text(fmt.Sprintf(
		"You already have a ticket in progress. Finish it or send \"%s\" first.", config.CancelKeyword))}}
}

func helpResult() service.Result {
	return service.Result{Messages: []line.Message{line.Text(fmt.Sprintf(
		"Send \"%s\" to report an issue.", config.TriggerKeyword))}}
}
