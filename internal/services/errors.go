package services

import "errors"

// Error classes surfaced to the HTTP boundary. Handlers map ErrNotFound to
// 404 and the rest to 400; everything else is a 500.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidState      = errors.New("invalid state")
	ErrNotPending        = errors.New("delivery step is not pending")
	ErrValidation        = errors.New("validation failed")
)
