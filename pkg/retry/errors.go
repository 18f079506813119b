package retry

import "errors"

var (
	ErrAlreadyStarted = errors.New("retry scheduler already started")
	ErrNotStarted     = errors.New("retry scheduler not started")
)
