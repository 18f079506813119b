package dispatch

import "errors"

var (
	ErrNoProviders      = errors.New("at least one provider is required")
	ErrStoreNil         = errors.New("store is required")
	ErrMissingRecipient = errors.New("notification has no recipient for channel")
)
