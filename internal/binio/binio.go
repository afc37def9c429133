// Package binio reads little-endian arrays whose length comes from an
// untrusted encoding.
//
// ReadSlice allocates in chunks as data arrives, so a truncated or hostile
// stream that claims a huge length fails with an EOF error before the full
// length is allocated.
package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// chunkLen is the number of elements read per call once an array is larger
// than one chunk.
const chunkLen = 1 << 16

// ErrLength is returned for a negative element count.
var ErrLength = errors.New("binio: invalid length")

// Word is an element type ReadSlice can decode.
type Word interface {
	uint32 | uint64 | int64
}

// ReadSlice reads n little-endian elements from r.
func ReadSlice[T Word](r io.Reader, n int64) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrLength, n)
	}
	if n <= chunkLen {
		s := make([]T, n)
		if n > 0 {
			if err := binary.Read(r, binary.LittleEndian, s); err != nil {
				return nil, err
			}
		}
		return s, nil
	}

	chunks := make([][]T, 0, 16)
	for remaining := n; remaining > 0; {
		c := make([]T, min(remaining, chunkLen))
		if err := binary.Read(r, binary.LittleEndian, c); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
		remaining -= int64(len(c))
	}

	s := make([]T, 0, n)
	for _, c := range chunks {
		s = append(s, c...)
	}
	return s, nil
}
