package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrProviderFailure  = errors.New("provider failure")
	ErrInvalidInput     = errors.New("invalid input")
)
