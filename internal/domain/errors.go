package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrLockHeld        = errors.New("lock already held")
	ErrNetwork         = errors.New("network error")
	ErrExchange        = errors.New("exchange error")
	ErrUnsupportedPair = errors.New("pair not listed on exchange")
)
