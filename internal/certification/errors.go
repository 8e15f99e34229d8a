package certification

import (
	"errors"
	"fmt"
)

// Sentinel errors for the certification core. Callers classify with
// errors.Is; messages carry the specifics.
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrDuplicateOrder  = errors.New("order already exists")
	ErrEmptyOrder      = errors.New("order has no items")
	ErrAlreadyFinished = errors.New("order already finished")

	// ErrConflict marks lock or serialization contention on the scheduling
	// state. The operation made no changes and can be retried as-is.
	ErrConflict = errors.New("scheduling conflict")
)

// Wrapf tags err's text onto the sentinel so errors.Is keeps working
// through the chain.
func Wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
