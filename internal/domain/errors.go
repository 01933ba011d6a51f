package domain

import "errors"

var (
	ErrDialogInProgress   = errors.New("dialog already in progress")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionConflict    = errors.New("session modified concurrently")
	ErrQuotaExceeded      = errors.New("monthly push quota exceeded")
	ErrBindingNotFound    = errors.New("binding not found")
	ErrBindingBlocked     = errors.New("binding blocked")
	ErrDepartmentNotFound = errors.New("department not found")
	ErrTooManyAttachments = errors.New("attachment limit reached")
)
