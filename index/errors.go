package index

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalState is returned when an operation is not allowed in the
	// current build state, such as adding to a frozen index or searching one
	// that is still being built.
	ErrIllegalState = errors.New("illegal index state")

	// ErrClosedTwice is returned when Freeze is called on a frozen index.
	// It satisfies errors.Is(err, ErrIllegalState).
	ErrClosedTwice error = &closedTwiceError{}

	// ErrCapacityExceeded is the sentinel wrapped by *CapacityError.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidArgument is returned for invalid options, and for hashes or
	// values wider than the configured widths.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConcurrentModification is returned when Add or Freeze overlaps with
	// another Add or Freeze on the same index.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrInconsistent is returned when the storing pass of a compressed index
	// disagrees with its counting pass, or when an integrity check fails.
	ErrInconsistent = errors.New("inconsistent index")

	// ErrBadEncoding is returned by ReadFrom for input that is not an encoded
	// index or was written by an unsupported version.
	ErrBadEncoding = errors.New("invalid index encoding")
)

type closedTwiceError struct{}

func (*closedTwiceError) Error() string { return "Index closed twice" }

func (*closedTwiceError) Unwrap() error { return ErrIllegalState }

// CapacityError reports an add beyond the configured capacity.
type CapacityError struct {
	// PreAdd is true when the counting pass of a compressed index overflowed.
	PreAdd bool
	// Count is the number of items including the rejected one.
	Count int64
	// Capacity is the configured capacity.
	Capacity int64
}

// Error returns the error message.
func (e *CapacityError) Error() string {
	if e.PreAdd {
		return fmt.Sprintf("Too many items pre-added: %d > %d", e.Count, e.Capacity)
	}
	return fmt.Sprintf("Too many items added: %d", e.Count)
}

// Unwrap returns ErrCapacityExceeded.
func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }
