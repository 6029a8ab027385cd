package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engine. Callers classify with errors.Is;
// everything wrapping one of these carries operation context via %w chains.
var (
	// ErrValidation marks a missing or invalid field: non-positive amounts,
	// absent required references, end date before start date.
	ErrValidation = errors.New("validation error")

	// ErrReference marks a dangling account or category id. Surfaced before
	// any persistence call is made.
	ErrReference = errors.New("reference error")

	// ErrPersistence marks a storage failure. Surfaced after rollback of any
	// partial multi-step operation.
	ErrPersistence = errors.New("persistence error")

	// ErrRecurrence marks an unrecognized interval or a generation run that
	// would not terminate. Halts generation for one template only.
	ErrRecurrence = errors.New("recurrence error")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Referencef wraps ErrReference with a formatted message.
func Referencef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrReference, fmt.Sprintf(format, args...))
}

// Persistencef wraps ErrPersistence around a storage error.
func Persistencef(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

// Recurrencef wraps ErrRecurrence with a formatted message.
func Recurrencef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRecurrence, fmt.Sprintf(format, args...))
}
