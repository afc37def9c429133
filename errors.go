package kmerindex

import (
	"errors"
	"fmt"

	"github.com/hupe1980/kmerindex/blobstore"
	"github.com/hupe1980/kmerindex/filter"
	"github.com/hupe1980/kmerindex/index"
	"github.com/hupe1980/kmerindex/internal/bitvector"
	"github.com/hupe1980/kmerindex/internal/resource"
	"github.com/hupe1980/kmerindex/persistence"
)

var (
	// ErrCapacity is returned when more items are added than an index can hold.
	ErrCapacity = errors.New("capacity exceeded")

	// ErrIllegalState is returned for operations not allowed in the current
	// build state, such as searching an unfrozen index.
	ErrIllegalState = errors.New("illegal state")

	// ErrInvalidArgument is returned for invalid configuration or input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInconsistent is returned when the two passes of a compressed build
	// disagree, or an integrity check fails.
	ErrInconsistent = errors.New("inconsistent index")

	// ErrConcurrentModification is returned when builds overlap on one index.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrMemoryLimit is returned when a build would exceed the memory limit.
	ErrMemoryLimit = errors.New("memory limit exceeded")

	// ErrCorrupt is returned when stored data fails verification.
	ErrCorrupt = errors.New("corrupt data")

	// ErrIncompatibleFormat is returned for stored data of an unknown format.
	ErrIncompatibleFormat = errors.New("incompatible format")

	// ErrNotFound is returned when a blob does not exist.
	ErrNotFound = errors.New("not found")
)

// CapacityError reports an add beyond the configured capacity.
//
// The original underlying error can be accessed via errors.Unwrap.
type CapacityError struct {
	Count    int64
	Capacity int64
	cause    error
}

func (e *CapacityError) Error() string { return e.cause.Error() }

func (e *CapacityError) Unwrap() []error { return []error{ErrCapacity, e.cause} }

// translateError maps errors of the sub-packages onto the public errors.
// The original error stays reachable through errors.Is and errors.As.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var ce *index.CapacityError
	if errors.As(err, &ce) {
		return &CapacityError{Count: ce.Count, Capacity: ce.Capacity, cause: err}
	}

	for _, m := range []struct {
		from []error
		to   error
	}{
		{[]error{index.ErrIllegalState}, ErrIllegalState},
		{[]error{index.ErrInvalidArgument, filter.ErrInvalidFilter, filter.ErrWidthMismatch, filter.ErrMalformedBlacklist, bitvector.ErrInvalidBits}, ErrInvalidArgument},
		{[]error{index.ErrInconsistent}, ErrInconsistent},
		{[]error{index.ErrConcurrentModification}, ErrConcurrentModification},
		{[]error{resource.ErrMemoryLimitExceeded}, ErrMemoryLimit},
		{[]error{persistence.ErrCorrupt}, ErrCorrupt},
		{[]error{persistence.ErrIncompatibleFormat, index.ErrBadEncoding}, ErrIncompatibleFormat},
		{[]error{blobstore.ErrNotFound}, ErrNotFound},
	} {
		for _, from := range m.from {
			if errors.Is(err, from) {
				return fmt.Errorf("%w: %w", m.to, err)
			}
		}
	}
	return err
}
