package inapp

import "errors"

var (
	ErrMessageNotFound  = errors.New("in-app message not found")
	ErrDuplicateMessage = errors.New("in-app message already exists")
	ErrMissingMessageID = errors.New("in-app message ID is required")
	ErrInboxNil         = errors.New("inbox is required")
)
