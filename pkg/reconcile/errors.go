package reconcile

import "errors"

var (
	ErrStoreNil         = errors.New("store is required")
	ErrReconcilerNil    = errors.New("reconciler is required")
	ErrAlreadyStarted   = errors.New("poller already started")
	ErrNotStarted       = errors.New("poller not started")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
