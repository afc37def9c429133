// Package bitvector provides the bit-level storage used by the index.
//
// BitVector is a fixed-length dense bit array packed into 32-bit words, with
// bounds-checked access. HashBitVector addresses a BitVector of 2^vectorBits
// slots from a hash, either scaled (keeping the top vectorBits of the hash) or
// direct (keeping the low vectorBits). HashBitHandle describes a HashBitVector
// so that its size can be planned before anything is allocated.
package bitvector
