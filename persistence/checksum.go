package persistence

import (
	"fmt"

	"github.com/hupe1980/kmerindex/internal/hash"
)

// ChecksumMismatchError is returned when checksum verification fails.
// It satisfies errors.Is(err, ErrCorrupt).
type ChecksumMismatchError struct {
	Name     string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s: checksum mismatch: expected 0x%08x, got 0x%08x", e.Name, e.Expected, e.Actual)
}

// Unwrap returns ErrCorrupt.
func (e *ChecksumMismatchError) Unwrap() error { return ErrCorrupt }

func verifyChecksum(name string, payload []byte, expected uint32) error {
	if actual := hash.CRC32C(payload); actual != expected {
		return &ChecksumMismatchError{Name: name, Expected: expected, Actual: actual}
	}
	return nil
}

// FingerprintMismatchError is returned when a loaded shard does not match the
// fingerprint recorded in its set manifest. It satisfies errors.Is(err, ErrCorrupt).
type FingerprintMismatchError struct {
	Name     string
	Expected uint64
	Actual   uint64
}

func (e *FingerprintMismatchError) Error() string {
	return fmt.Sprintf("%s: fingerprint mismatch: expected %016x, got %016x", e.Name, e.Expected, e.Actual)
}

// Unwrap returns ErrCorrupt.
func (e *FingerprintMismatchError) Unwrap() error { return ErrCorrupt }
