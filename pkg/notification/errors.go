package notification

import "errors"

var (
	ErrNotFound          = errors.New("notification not found")
	ErrMissingID         = errors.New("notification ID is required")
	ErrNoRecipients      = errors.New("notification has no recipients")
	ErrUnknownChannel    = errors.New("unknown notification channel")
	ErrInvalidTransition = errors.New("invalid notification status transition")
)
