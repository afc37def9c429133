package kmer

import (
	"fmt"
	"math/bits"
)

// MaxBits is the widest hash representable by Hash.
const MaxBits = 128

// Hash is a hash value of up to 128 bits stored as two 64-bit words.
//
// Hashes no wider than 64 bits live entirely in Lo and have Hi == 0.
type Hash struct {
	Hi uint64
	Lo uint64
}

// FromUint64 returns the native (single word) hash h.
func FromUint64(h uint64) Hash {
	return Hash{Lo: h}
}

// IsNative reports whether h fits in a single 64-bit word.
func (h Hash) IsNative() bool {
	return h.Hi == 0
}

// Cmp compares h and o as unsigned 128-bit integers.
func (h Hash) Cmp(o Hash) int {
	switch {
	case h.Hi < o.Hi:
		return -1
	case h.Hi > o.Hi:
		return 1
	case h.Lo < o.Lo:
		return -1
	case h.Lo > o.Lo:
		return 1
	default:
		return 0
	}
}

// Less reports whether h < o.
func (h Hash) Less(o Hash) bool {
	return h.Cmp(o) < 0
}

// Shr returns h >> n. Shifts of 128 or more yield zero.
func (h Hash) Shr(n uint) Hash {
	switch {
	case n == 0:
		return h
	case n >= 128:
		return Hash{}
	case n >= 64:
		return Hash{Lo: h.Hi >> (n - 64)}
	default:
		return Hash{Hi: h.Hi >> n, Lo: h.Lo>>n | h.Hi<<(64-n)}
	}
}

// Shl returns h << n. Shifts of 128 or more yield zero.
func (h Hash) Shl(n uint) Hash {
	switch {
	case n == 0:
		return h
	case n >= 128:
		return Hash{}
	case n >= 64:
		return Hash{Hi: h.Lo << (n - 64)}
	default:
		return Hash{Hi: h.Hi<<n | h.Lo>>(64-n), Lo: h.Lo << n}
	}
}

// Or returns h | o.
func (h Hash) Or(o Hash) Hash {
	return Hash{Hi: h.Hi | o.Hi, Lo: h.Lo | o.Lo}
}

// And returns h & o.
func (h Hash) And(o Hash) Hash {
	return Hash{Hi: h.Hi & o.Hi, Lo: h.Lo & o.Lo}
}

// Mask returns a hash with the low n bits set.
func Mask(n uint) Hash {
	switch {
	case n == 0:
		return Hash{}
	case n >= 128:
		return Hash{Hi: ^uint64(0), Lo: ^uint64(0)}
	case n >= 64:
		return Hash{Hi: 1<<(n-64) - 1, Lo: ^uint64(0)}
	default:
		return Hash{Lo: 1<<n - 1}
	}
}

// Len returns the minimum number of bits needed to represent h.
func (h Hash) Len() int {
	if h.Hi != 0 {
		return 64 + bits.Len64(h.Hi)
	}
	return bits.Len64(h.Lo)
}

// FitsIn reports whether h is representable in width bits.
func (h Hash) FitsIn(width int) bool {
	return h.Len() <= width
}

// String renders h as hexadecimal, with the high word only when non-zero.
func (h Hash) String() string {
	if h.Hi == 0 {
		return fmt.Sprintf("%#x", h.Lo)
	}
	return fmt.Sprintf("%#x%016x", h.Hi, h.Lo)
}
