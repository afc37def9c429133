// Package kmer provides the hash value type shared by the index, the filters and
// the blacklist loader.
//
// A k-mer is packed 2 bits per base (A=00, C=01, G=10, T=11) with the most
// significant base first. Up to 32 bases fit in a native uint64 hash; longer
// k-mers use the two-word Hash type, which supports exact shift and mask
// arithmetic up to 128 bits.
package kmer
