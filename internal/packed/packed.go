// Package packed provides fixed-width arrays of unsigned integers packed into
// 64-bit words.
//
// An Array of width w stores each element in exactly w bits, so n elements
// occupy ceil(n*w/64) words. Elements may straddle a word boundary.
package packed

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"

	"github.com/hupe1980/kmerindex/internal/binio"
)

// ErrWidth is returned for a width outside [0, 64].
var ErrWidth = errors.New("invalid packed width")

// Array is a fixed-length array of width-bit unsigned integers.
type Array struct {
	words []uint64
	n     int64
	width uint
	mask  uint64
}

// Words returns the number of 64-bit words needed for n elements of the given width.
func Words(n int64, width int) int64 {
	total := uint64(n) * uint64(width)
	return int64((total + 63) / 64)
}

// Bytes returns the storage in bytes needed for n elements of the given width.
func Bytes(n int64, width int) int64 {
	return Words(n, width) * 8
}

// New allocates a zeroed array of n elements of width bits.
func New(n int64, width int) (*Array, error) {
	if width < 0 || width > 64 {
		return nil, fmt.Errorf("%w: %d", ErrWidth, width)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrWidth, n)
	}
	return &Array{
		words: make([]uint64, Words(n, width)),
		n:     n,
		width: uint(width),
		mask:  maskOf(uint(width)),
	}, nil
}

func maskOf(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<width - 1
}

// Len returns the number of elements.
func (a *Array) Len() int64 { return a.n }

// Width returns the element width in bits.
func (a *Array) Width() int { return int(a.width) }

// Bytes returns the size of the backing storage.
func (a *Array) Bytes() int64 { return int64(len(a.words)) * 8 }

// Get returns element i. i must be in [0, Len).
func (a *Array) Get(i int64) uint64 {
	if a.width == 0 {
		return 0
	}
	bit := uint64(i) * uint64(a.width)
	w, off := bit/64, uint(bit%64)
	v := a.words[w] >> off
	if off+a.width > 64 {
		v |= a.words[w+1] << (64 - off)
	}
	return v & a.mask
}

// Set stores v, truncated to the array width, at element i.
func (a *Array) Set(i int64, v uint64) {
	if a.width == 0 {
		return
	}
	v &= a.mask
	bit := uint64(i) * uint64(a.width)
	w, off := bit/64, uint(bit%64)
	a.words[w] = a.words[w]&^(a.mask<<off) | v<<off
	if off+a.width > 64 {
		spill := 64 - off
		a.words[w+1] = a.words[w+1]&^(a.mask>>spill) | v>>spill
	}
}

// Fits reports whether v can be stored in width bits without truncation.
func Fits(v uint64, width int) bool {
	return bits.Len64(v) <= width
}

// WriteTo writes the length, the width and the words, little endian.
func (a *Array) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, binary.LittleEndian, a.n); err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(a.width)); err != nil {
		return 8, err
	}
	if len(a.words) == 0 {
		return 9, nil
	}
	if err := binary.Write(w, binary.LittleEndian, a.words); err != nil {
		return 9, err
	}
	return 9 + a.Bytes(), nil
}

// Read reads an array written by WriteTo.
func Read(r io.Reader) (*Array, error) {
	var n int64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	var width uint8
	if err := binary.Read(r, binary.LittleEndian, &width); err != nil {
		return nil, err
	}
	if width > 64 {
		return nil, fmt.Errorf("%w: %d", ErrWidth, width)
	}
	if n < 0 || (width > 0 && uint64(n) > math.MaxInt64/uint64(width)) {
		return nil, fmt.Errorf("%w: length %d", ErrWidth, n)
	}
	words, err := binio.ReadSlice[uint64](r, Words(n, int(width)))
	if err != nil {
		return nil, err
	}
	return &Array{
		words: words,
		n:     n,
		width: uint(width),
		mask:  maskOf(uint(width)),
	}, nil
}
