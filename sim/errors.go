package sim

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every load-time configuration error.
var ErrInvalidConfig = errors.New("invalid network configuration")

// InvariantViolation is the panic value raised when the engine detects a
// state it should never reach (occupancy out of range, time going backwards).
// It signals a defect in the engine, not a user error.
type InvariantViolation struct {
	Queue  string
	Detail string
}

func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation at queue %q: %s", v.Queue, v.Detail)
}

func violationf(queue, format string, args ...any) *InvariantViolation {
	return &InvariantViolation{Queue: queue, Detail: fmt.Sprintf(format, args...)}
}

func configErrorf(queue, format string, args ...any) error {
	return fmt.Errorf("%w: queue %q: %s", ErrInvalidConfig, queue, fmt.Sprintf(format, args...))
}
