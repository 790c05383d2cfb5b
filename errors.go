package streamfee

import (
	"errors"
	"fmt"

	"github.com/xraph/streamfee/accrual"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound       = errors.New("streamfee: not found")
	ErrAlreadyExists  = errors.New("streamfee: already exists")
	ErrInvalidInput   = errors.New("streamfee: invalid input")
	ErrUnauthorized   = errors.New("streamfee: unauthorized")
	ErrNotImplemented = errors.New("streamfee: not implemented")

	// Not found
	ErrProviderNotFound   = errors.New("streamfee: provider not found")
	ErrSubscriberNotFound = errors.New("streamfee: subscriber not found")
	ErrUnknownProvider    = accrual.ErrUnknownProvider

	// Already exists
	ErrProviderExists    = errors.New("streamfee: provider already registered")
	ErrSubscriberExists  = errors.New("streamfee: subscriber already registered")
	ErrAlreadySubscribed = errors.New("streamfee: already subscribed")

	// State conflicts
	ErrProviderSuspended = errors.New("streamfee: provider is suspended")
	ErrAlreadySuspended  = errors.New("streamfee: provider already suspended")
	ErrNotSubscribed     = accrual.ErrNotSubscribed
	ErrDuplicateClaim    = accrual.ErrDuplicateClaim

	// Thresholds
	ErrFeeTooLow     = errors.New("streamfee: fee below minimum monthly revenue")
	ErrDepositTooLow = errors.New("streamfee: deposit below minimum value")

	// Collaborators
	ErrPriceUnavailable = errors.New("streamfee: payment token price unavailable")
	ErrTransferFailed   = errors.New("streamfee: token transfer failed")

	// Store errors
	ErrStoreClosed     = errors.New("streamfee: store is closed")
	ErrCommitFailed    = errors.New("streamfee: commit failed")
	ErrMigrationFailed = errors.New("streamfee: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("streamfee: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrProviderNotFound) ||
		errors.Is(err, ErrSubscriberNotFound) ||
		errors.Is(err, ErrUnknownProvider)
}

// IsAlreadyExists returns true for duplicate registrations and subscriptions.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrProviderExists) ||
		errors.Is(err, ErrSubscriberExists) ||
		errors.Is(err, ErrAlreadySubscribed)
}

// IsAuthorization returns true if the caller does not own the record.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsStateConflict returns true if the operation is invalid in the record's
// current state. ErrAlreadySubscribed is both a conflict and a duplicate.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrProviderSuspended) ||
		errors.Is(err, ErrAlreadySuspended) ||
		errors.Is(err, ErrAlreadySubscribed) ||
		errors.Is(err, ErrNotSubscribed)
}

// IsThreshold returns true for fee or deposit minimum violations.
func IsThreshold(err error) bool {
	return errors.Is(err, ErrFeeTooLow) ||
		errors.Is(err, ErrDepositTooLow)
}

// IsInvalidInput returns true for malformed arguments.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDuplicateClaim)
}
