package services

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of them,
// so callers can branch with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrState       = errors.New("invalid state")
	ErrAuth        = errors.New("not authorized")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failure")
)

var (
	ErrNegativeChips   = fmt.Errorf("%w: chips must not be negative", ErrValidation)
	ErrNegativePayment = fmt.Errorf("%w: payment must not be negative", ErrValidation)
	ErrAmountTooLarge  = fmt.Errorf("%w: amount exceeds the maximum", ErrValidation)
	ErrUnknownKind     = fmt.Errorf("%w: unknown transaction type", ErrValidation)
	ErrUnknownMethod   = fmt.Errorf("%w: unknown payment method", ErrValidation)

	ErrRegisterClosed        = fmt.Errorf("%w: register is closed", ErrState)
	ErrRegisterAlreadyClosed = fmt.Errorf("%w: register already closed", ErrState)
	ErrRegisterOpen          = fmt.Errorf("%w: register is still open", ErrState)

	ErrUnauthenticated = fmt.Errorf("%w: missing operator identity", ErrAuth)
	ErrWrongSecret     = fmt.Errorf("%w: secret does not match", ErrAuth)

	ErrRegisterNotFound    = fmt.Errorf("%w: register", ErrNotFound)
	ErrPlayerNotFound      = fmt.Errorf("%w: player", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("%w: transaction", ErrNotFound)
)

var errorKinds = []error{ErrValidation, ErrState, ErrAuth, ErrNotFound, ErrPersistence}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// classify leaves taxonomy errors alone and reports anything else, driver
// errors and exhausted retries included, as a persistence failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range errorKinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
