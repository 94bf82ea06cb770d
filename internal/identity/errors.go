package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing, soft-deleted, or expired resource.
	ErrNotFound = errors.New("resource not found")

	// ErrLocked signals an attempt to add a transaction to a locked card.
	ErrLocked = errors.New("card is locked")

	// ErrValidation signals a missing or malformed input value.
	ErrValidation = errors.New("invalid input")

	// ErrDuplicateEvent signals an event whose dedup key is already present
	// on the resource's event list.
	ErrDuplicateEvent = errors.New("duplicate remote event")
)

// ProviderError wraps a failure talking to an external provider. Op names
// the provider operation for diagnostics, e.g. "mailtm.create_account".
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
