package bitvector

import (
	"errors"
	"fmt"
	"io"
)

// MaxHashBits is the widest hash a HashBitVector can address from.
const MaxHashBits = 64

// maxCreateBits is the widest address space Create will allocate.
const maxCreateBits = 62

// ErrInvalidBits is returned for an invalid hashBits/vectorBits combination.
var ErrInvalidBits = errors.New("invalid bit parameters")

// HashBitHandle describes a hash-addressed bit vector without allocating it.
type HashBitHandle struct {
	hashBits   int
	vectorBits int
	shift      uint
}

// NewHashBitHandle validates the widths and returns a handle.
//
// hashBits must be in [1, 64] and vectorBits in [0, 64]. hashBits < vectorBits is
// legal: the shift is then zero and part of the address space is unreachable.
func NewHashBitHandle(hashBits, vectorBits int) (HashBitHandle, error) {
	if hashBits < 1 || vectorBits < 0 {
		return HashBitHandle{}, fmt.Errorf("%w: hashBits=%d vectorBits=%d", ErrInvalidBits, hashBits, vectorBits)
	}
	if hashBits > MaxHashBits || vectorBits > MaxHashBits {
		return HashBitHandle{}, fmt.Errorf("%w: hashBits=%d vectorBits=%d exceeds %d", ErrInvalidBits, hashBits, vectorBits, MaxHashBits)
	}
	return HashBitHandle{
		hashBits:   hashBits,
		vectorBits: vectorBits,
		shift:      uint(max(hashBits-vectorBits, 0)),
	}, nil
}

// HashBits returns the configured input hash width.
func (h HashBitHandle) HashBits() int { return h.hashBits }

// Bits returns the address width.
func (h HashBitHandle) Bits() int { return h.vectorBits }

// Shift returns the right shift applied to a hash before masking.
func (h HashBitHandle) Shift() uint { return h.shift }

// Length returns 2^Bits. It returns 0 for a full 64-bit address space, which a
// uint64 cannot represent.
func (h HashBitHandle) Length() uint64 {
	return uint64(1) << uint(h.vectorBits)
}

// Bytes returns the storage the vector would occupy, rounded to 32-bit words.
func (h HashBitHandle) Bytes() uint64 {
	if h.vectorBits < 5 {
		return bytesPerWord
	}
	return uint64(1) << uint(h.vectorBits-3)
}

// Create allocates the vector described by h.
func (h HashBitHandle) Create() (*HashBitVector, error) {
	if h.vectorBits > maxCreateBits {
		return nil, fmt.Errorf("%w: 2^%d bits", ErrTooLarge, h.vectorBits)
	}
	bv, err := New(int64(1) << uint(h.vectorBits))
	if err != nil {
		return nil, err
	}
	return &HashBitVector{
		handle: h,
		bits:   bv,
		mask:   h.Length() - 1,
	}, nil
}

// String describes the handle for diagnostics.
func (h HashBitHandle) String() string {
	return fmt.Sprintf("HashBitHandle hashBits=%d vectorBits=%d shift=%d", h.hashBits, h.vectorBits, h.shift)
}

// HashBitVector maps a hash onto a BitVector of 2^vectorBits slots.
//
// Scaled addressing keeps the top vectorBits of a hashBits-wide hash; direct
// addressing keeps the low vectorBits of an already reduced key.
type HashBitVector struct {
	handle HashBitHandle
	bits   *BitVector
	mask   uint64
}

// Handle returns the describing handle.
func (v *HashBitVector) Handle() HashBitHandle { return v.handle }

// Len returns the number of addressable slots.
func (v *HashBitVector) Len() int64 { return v.bits.Len() }

// Bytes returns the size of the backing storage.
func (v *HashBitVector) Bytes() int64 { return v.bits.Bytes() }

// Count returns the number of set slots.
func (v *HashBitVector) Count() int64 { return v.bits.Count() }

func (v *HashBitVector) scaled(hash uint64) uint64 {
	return (hash >> v.handle.shift) & v.mask
}

// Get reports whether the slot for hash is set.
func (v *HashBitVector) Get(hash uint64) bool { return v.bits.test(v.scaled(hash)) }

// Set sets the slot for hash.
func (v *HashBitVector) Set(hash uint64) { v.bits.set(v.scaled(hash)) }

// Reset clears the slot for hash.
func (v *HashBitVector) Reset(hash uint64) { v.bits.reset(v.scaled(hash)) }

// GetDirect reports whether slot hash mod 2^vectorBits is set.
func (v *HashBitVector) GetDirect(hash uint64) bool { return v.bits.test(hash & v.mask) }

// SetDirect sets slot hash mod 2^vectorBits.
func (v *HashBitVector) SetDirect(hash uint64) { v.bits.set(hash & v.mask) }

// ResetDirect clears slot hash mod 2^vectorBits.
func (v *HashBitVector) ResetDirect(hash uint64) { v.bits.reset(hash & v.mask) }

// String renders the underlying bits.
func (v *HashBitVector) String() string { return v.bits.String() }

// WriteTo writes the widths followed by the bit vector.
func (v *HashBitVector) WriteTo(w io.Writer) (int64, error) {
	hdr := []byte{byte(v.handle.hashBits), byte(v.handle.vectorBits)}
	if _, err := w.Write(hdr); err != nil {
		return 0, err
	}
	n, err := v.bits.WriteTo(w)
	return n + 2, err
}

// ReadHashBitVector reads a vector written by WriteTo.
func ReadHashBitVector(r io.Reader) (*HashBitVector, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	h, err := NewHashBitHandle(int(hdr[0]), int(hdr[1]))
	if err != nil {
		return nil, err
	}
	bv := &BitVector{}
	if _, err := bv.ReadFrom(r); err != nil {
		return nil, err
	}
	if uint64(bv.Len()) != h.Length() {
		return nil, fmt.Errorf("%w: stored length %d for %s", ErrInvalidBits, bv.Len(), h)
	}
	return &HashBitVector{handle: h, bits: bv, mask: h.Length() - 1}, nil
}
