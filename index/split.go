package index

import "github.com/hupe1980/kmerindex/kmer"

// splitter divides a hash of hashBits bits into a bucket position (the top
// pointerBits bits) and the remaining low bits stored per entry. The low part
// spans two words when it is wider than 64 bits.
type splitter struct {
	hashBits    int
	pointerBits int
	lowBits     uint
	lowMask     kmer.Hash
}

func newSplitter(hashBits, pointerBits int) splitter {
	low := uint(hashBits - pointerBits)
	return splitter{
		hashBits:    hashBits,
		pointerBits: pointerBits,
		lowBits:     low,
		lowMask:     kmer.Mask(low),
	}
}

// widths returns the packed widths of the low and high words of the
// compressed part. hi is 0 unless the part is wider than 64 bits.
func (s splitter) widths() (lo, hi int) {
	if s.lowBits <= 64 {
		return int(s.lowBits), 0
	}
	return 64, int(s.lowBits) - 64
}

// position returns h >> (hashBits-pointerBits).
func (s splitter) position(h kmer.Hash) uint64 {
	if h.Hi == 0 {
		if s.lowBits >= 64 {
			return 0
		}
		return h.Lo >> s.lowBits
	}
	return h.Shr(s.lowBits).Lo
}

// compress returns the low hashBits-pointerBits bits of h.
func (s splitter) compress(h kmer.Hash) kmer.Hash {
	return h.And(s.lowMask)
}

// decompress reassembles the hash from its position and low bits.
func (s splitter) decompress(position uint64, low kmer.Hash) kmer.Hash {
	if s.hashBits <= 64 {
		if s.lowBits >= 64 {
			return low
		}
		return kmer.FromUint64(position<<s.lowBits | low.Lo)
	}
	return kmer.FromUint64(position).Shl(s.lowBits).Or(low)
}

// buckets returns the number of positions, 2^pointerBits.
func (s splitter) buckets() int64 {
	return int64(1) << uint(s.pointerBits)
}
