package kmer

import (
	"errors"
	"fmt"
	"strings"
)

// BitsPerBase is the number of bits used to pack one nucleotide.
const BitsPerBase = 2

// MaxNativeLength is the longest k-mer that packs into a single 64-bit word.
const MaxNativeLength = 64 / BitsPerBase

var (
	// ErrInvalidBase is returned when a k-mer contains a character other than A, C, G or T.
	ErrInvalidBase = errors.New("invalid nucleotide")

	// ErrTooLong is returned when a k-mer does not fit in the target width.
	ErrTooLong = errors.New("k-mer too long")
)

// code maps a nucleotide to its 2-bit code: A=00, C=01, G=10, T=11.
func code(b byte) (uint64, bool) {
	switch b {
	case 'A', 'a':
		return 0, true
	case 'C', 'c':
		return 1, true
	case 'G', 'g':
		return 2, true
	case 'T', 't':
		return 3, true
	default:
		return 0, false
	}
}

// Encode packs s into a native hash, most significant base first.
//
// s must contain at most MaxNativeLength bases; case is ignored.
func Encode(s string) (uint64, error) {
	if len(s) > MaxNativeLength {
		return 0, fmt.Errorf("%w: %d bases > %d", ErrTooLong, len(s), MaxNativeLength)
	}
	var h uint64
	for i := 0; i < len(s); i++ {
		c, ok := code(s[i])
		if !ok {
			return 0, fmt.Errorf("%w: %q at offset %d", ErrInvalidBase, s[i], i)
		}
		h = h<<BitsPerBase | c
	}
	return h, nil
}

// EncodeExtended packs s into a two-word hash. s may hold up to 64 bases.
func EncodeExtended(s string) (Hash, error) {
	if len(s)*BitsPerBase > MaxBits {
		return Hash{}, fmt.Errorf("%w: %d bases > %d", ErrTooLong, len(s), MaxBits/BitsPerBase)
	}
	var h Hash
	for i := 0; i < len(s); i++ {
		c, ok := code(s[i])
		if !ok {
			return Hash{}, fmt.Errorf("%w: %q at offset %d", ErrInvalidBase, s[i], i)
		}
		h = h.Shl(BitsPerBase).Or(FromUint64(c))
	}
	return h, nil
}

// Decode unpacks the low length bases of h into an upper-case k-mer string.
func Decode(h Hash, length int) string {
	const alphabet = "ACGT"
	var sb strings.Builder
	sb.Grow(length)
	for i := length - 1; i >= 0; i-- {
		sb.WriteByte(alphabet[h.Shr(uint(i*BitsPerBase)).Lo&3])
	}
	return sb.String()
}
