package accrual

import "errors"

var (
	// ErrUnknownProvider is returned when a claimed suspended id has no provider record.
	ErrUnknownProvider = errors.New("streamfee: claimed provider is not registered")
	// ErrNotSubscribed is returned when a claimed id is not in the subscriber's set.
	ErrNotSubscribed = errors.New("streamfee: not subscribed")
	// ErrDuplicateClaim is returned when the claim list names a provider twice.
	ErrDuplicateClaim = errors.New("streamfee: duplicate id in suspension claim")
)
