package bitvector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"strings"

	"github.com/hupe1980/kmerindex/internal/binio"
)

const (
	wordBits = 32
	wordMask = wordBits - 1

	// bytesPerWord is the storage granularity reported by Bytes.
	bytesPerWord = wordBits / 8

	// groupSize is the number of bits per group in String.
	groupSize = 10
)

var (
	// ErrNegativeLength is returned when a bit vector is created with a negative length.
	ErrNegativeLength = errors.New("Negative length")

	// ErrTooLarge is returned when a bit vector cannot be allocated for the requested length.
	ErrTooLarge = errors.New("bit vector too large")
)

// RangeError reports an access outside [0, Length).
type RangeError struct {
	Index  int64
	Length int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%d:%d", e.Index, e.Length)
}

// BitVector is a fixed-length dense bit array packed into 32-bit words.
//
// A BitVector never changes length. It is not safe for concurrent mutation;
// concurrent reads are safe once all writes have completed.
type BitVector struct {
	words  []uint32
	length int64
}

// New creates a zeroed bit vector holding length bits.
func New(length int64) (*BitVector, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w:%d", ErrNegativeLength, length)
	}
	n := (length + wordMask) / wordBits
	if uint64(n) > uint64(maxWords) {
		return nil, fmt.Errorf("%w: %d bits", ErrTooLarge, length)
	}
	return &BitVector{
		words:  make([]uint32, n),
		length: length,
	}, nil
}

// maxWords bounds allocations so that make never panics on the word slice.
const maxWords = 1 << 40

func (b *BitVector) check(i int64) error {
	if i < 0 || i >= b.length {
		return &RangeError{Index: i, Length: b.length}
	}
	return nil
}

// Get returns the bit at i.
func (b *BitVector) Get(i int64) (bool, error) {
	if err := b.check(i); err != nil {
		return false, err
	}
	return b.test(uint64(i)), nil
}

// Set sets the bit at i.
func (b *BitVector) Set(i int64) error {
	if err := b.check(i); err != nil {
		return err
	}
	b.set(uint64(i))
	return nil
}

// Reset clears the bit at i.
func (b *BitVector) Reset(i int64) error {
	if err := b.check(i); err != nil {
		return err
	}
	b.reset(uint64(i))
	return nil
}

// test, set and reset skip the bounds check; callers guarantee i < length.
func (b *BitVector) test(i uint64) bool {
	return b.words[i/wordBits]&(1<<(i&wordMask)) != 0
}

func (b *BitVector) set(i uint64) {
	b.words[i/wordBits] |= 1 << (i & wordMask)
}

func (b *BitVector) reset(i uint64) {
	b.words[i/wordBits] &^= 1 << (i & wordMask)
}

// Len returns the number of addressable bits.
func (b *BitVector) Len() int64 {
	return b.length
}

// Bytes returns the size of the backing storage in bytes.
func (b *BitVector) Bytes() int64 {
	return int64(len(b.words)) * bytesPerWord
}

// Count returns the number of set bits.
func (b *BitVector) Count() int64 {
	var count int64
	for _, w := range b.words {
		if w != 0 {
			count += int64(bits.OnesCount32(w))
		}
	}
	return count
}

// NextSetBit returns the index of the next set bit at or after i, or -1.
func (b *BitVector) NextSetBit(i int64) int64 {
	if i < 0 {
		i = 0
	}
	if i >= b.length {
		return -1
	}
	wordIdx := i / wordBits
	w := b.words[wordIdx] &^ (1<<(uint64(i)&wordMask) - 1)
	for {
		if w != 0 {
			idx := wordIdx*wordBits + int64(bits.TrailingZeros32(w))
			if idx >= b.length {
				return -1
			}
			return idx
		}
		wordIdx++
		if wordIdx >= int64(len(b.words)) {
			return -1
		}
		w = b.words[wordIdx]
	}
}

// String renders the bits in groups of ten, lowest index first.
func (b *BitVector) String() string {
	var sb strings.Builder
	sb.Grow(int(b.length + b.length/groupSize))
	for i := int64(0); i < b.length; i++ {
		if i > 0 && i%groupSize == 0 {
			sb.WriteByte(' ')
		}
		if b.test(uint64(i)) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// WriteTo writes the bit vector to w: the length followed by the words, little endian.
func (b *BitVector) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, binary.LittleEndian, b.length); err != nil {
		return 0, err
	}
	n := int64(8)
	if len(b.words) == 0 {
		return n, nil
	}
	if err := binary.Write(w, binary.LittleEndian, b.words); err != nil {
		return n, err
	}
	return n + b.Bytes(), nil
}

// ReadFrom replaces the contents of b with a bit vector read from r.
func (b *BitVector) ReadFrom(r io.Reader) (int64, error) {
	var length int64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return 0, err
	}
	if length < 0 {
		return 8, fmt.Errorf("%w:%d", ErrNegativeLength, length)
	}
	nw := (length + wordMask) / wordBits
	if uint64(nw) > uint64(maxWords) {
		return 8, fmt.Errorf("%w: %d bits", ErrTooLarge, length)
	}
	words, err := binio.ReadSlice[uint32](r, nw)
	if err != nil {
		return 8, err
	}
	*b = BitVector{words: words, length: length}
	return 8 + b.Bytes(), nil
}
