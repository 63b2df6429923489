package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPlan means no usable plan was produced; the caller should fall
	// back to another analysis strategy.
	ErrEmptyPlan = errors.New("plan has no operations")

	// ErrNilTable is returned when Execute is given no table at all.
	ErrNilTable = errors.New("input table is nil")

	// ErrColumnNotFound means none of the columns an operation needs resolved.
	ErrColumnNotFound = errors.New("column not found")

	// ErrIncompatibleType means the operation cannot run on the column's kind.
	ErrIncompatibleType = errors.New("incompatible column type")

	// ErrInvalidOperation means the operation's own fields are unusable.
	ErrInvalidOperation = errors.New("invalid operation")
)

// OperationError records why one plan step was skipped.
type OperationError struct {
	Index int    // position in the plan (0-based)
	Op    OpKind // tag of the failed operation
	Err   error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

func columnNotFound(names ...string) error {
	return fmt.Errorf("%w: %v", ErrColumnNotFound, names)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}

func incompatiblef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIncompatibleType, fmt.Sprintf(format, args...))
}
