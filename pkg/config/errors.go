package config

import "errors"

var (
	ErrParsingConfig   = errors.New("failed to parse environment variables into config")
	ErrLoadingEnvFiles = errors.New("failed to load env files")
	ErrNilPointer      = errors.New("nil pointer provided to config loader")
)
