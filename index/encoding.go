package index

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/hupe1980/kmerindex/filter"
	"github.com/hupe1980/kmerindex/histogram"
	"github.com/hupe1980/kmerindex/internal/binio"
	"github.com/hupe1980/kmerindex/internal/bitvector"
	"github.com/hupe1980/kmerindex/internal/hash"
	"github.com/hupe1980/kmerindex/internal/packed"
)

const (
	// encodingMagic is "KMIX" little endian.
	encodingMagic   uint32 = 0x58494d4b
	encodingVersion uint16 = 1

	flagCompressed uint8 = 1 << 0
	flagBitVector  uint8 = 1 << 1
)

// fileHeader is the fixed-size prefix of an encoded index.
type fileHeader struct {
	Magic         uint32
	Version       uint16
	Flags         uint8
	HashBits      uint8
	ValueBits     uint8
	PointerBits   uint8
	BitVectorBits uint8
	_             uint8
	Capacity      int64
	Entries       int64

	Hashes           int64
	DiscardedEntries int64
	DiscardedHashes  int64
	MaxFrequency     int64

	HistogramLen int64
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteTo writes the binary encoding of a frozen index.
//
// The encoding holds the options, the statistics, the histogram and the
// storage arrays. It does not hold the filter; the entries already reflect it.
func (ix *Index) WriteTo(w io.Writer) (int64, error) {
	if err := ix.checkFrozen(); err != nil {
		return 0, err
	}
	cw := &countingWriter{w: w}

	hdr := fileHeader{
		Magic:            encodingMagic,
		Version:          encodingVersion,
		HashBits:         uint8(ix.opts.HashBits),
		ValueBits:        uint8(ix.opts.ValueBits),
		PointerBits:      uint8(ix.opts.PointerBits),
		BitVectorBits:    uint8(ix.opts.BitVectorBits),
		Capacity:         ix.opts.Capacity,
		Entries:          ix.n,
		Hashes:           ix.stats.Hashes,
		DiscardedEntries: ix.stats.DiscardedEntries,
		DiscardedHashes:  ix.stats.DiscardedHashes,
		MaxFrequency:     ix.stats.MaxFrequency,
		HistogramLen:     int64(ix.hist.Len()),
	}
	if ix.opts.Compressed {
		hdr.Flags |= flagCompressed
	}
	if ix.valid != nil {
		hdr.Flags |= flagBitVector
	}
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return cw.n, err
	}

	hist := make([]int64, 0, 2*ix.hist.Len())
	for f, c := range ix.hist.All() {
		hist = append(hist, f, c)
	}
	if err := writeSlice(cw, hist); err != nil {
		return cw.n, err
	}

	if ix.opts.Compressed {
		if err := writeSlice(cw, ix.pointers); err != nil {
			return cw.n, err
		}
		if _, err := ix.lows.WriteTo(cw); err != nil {
			return cw.n, err
		}
		if ix.lowsHi != nil {
			if _, err := ix.lowsHi.WriteTo(cw); err != nil {
				return cw.n, err
			}
		}
	} else {
		if err := writeSlice(cw, ix.lo); err != nil {
			return cw.n, err
		}
		if ix.hi != nil {
			if err := writeSlice(cw, ix.hi); err != nil {
				return cw.n, err
			}
		}
	}
	if _, err := ix.values.WriteTo(cw); err != nil {
		return cw.n, err
	}
	if ix.valid != nil {
		if _, err := ix.valid.WriteTo(cw); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

func writeSlice[T int64 | uint64](w io.Writer, s []T) error {
	if len(s) == 0 {
		return nil
	}
	return binary.Write(w, binary.LittleEndian, s)
}

// ReadFrom reads an index written by WriteTo. The result is frozen and keeps
// every entry it was written with. logger may be nil.
func ReadFrom(r io.Reader, logger *slog.Logger) (*Index, error) {
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrBadEncoding, err)
	}
	if hdr.Magic != encodingMagic {
		return nil, fmt.Errorf("%w: magic 0x%08x", ErrBadEncoding, hdr.Magic)
	}
	if hdr.Version != encodingVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadEncoding, hdr.Version)
	}

	opts := Options{
		Capacity:      hdr.Capacity,
		HashBits:      int(hdr.HashBits),
		ValueBits:     int(hdr.ValueBits),
		Compressed:    hdr.Flags&flagCompressed != 0,
		PointerBits:   int(hdr.PointerBits),
		BitVectorBits: int(hdr.BitVectorBits),
		Threads:       1,
		Filter:        filter.Unfiltered(),
		Logger:        logger,
	}
	if err := opts.normalize(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadEncoding, err)
	}
	if hdr.Entries < 0 || hdr.Entries > hdr.Capacity || hdr.HistogramLen < 0 {
		return nil, fmt.Errorf("%w: %d entries for capacity %d", ErrBadEncoding, hdr.Entries, hdr.Capacity)
	}

	ix := &Index{
		opts:   opts,
		split:  newSplitter(opts.HashBits, opts.PointerBits),
		filter: opts.Filter,
		logger: opts.Logger,
		n:      hdr.Entries,
		stats: Stats{
			Entries:          hdr.Entries,
			Hashes:           hdr.Hashes,
			DiscardedEntries: hdr.DiscardedEntries,
			DiscardedHashes:  hdr.DiscardedHashes,
			MaxFrequency:     hdr.MaxFrequency,
		},
	}

	pairs, err := binio.ReadSlice[int64](r, 2*hdr.HistogramLen)
	if err != nil {
		return nil, fmt.Errorf("%w: read histogram: %w", ErrBadEncoding, err)
	}
	ix.hist = histogram.New()
	for i := 0; i < len(pairs); i += 2 {
		if err := ix.hist.Add(pairs[i], pairs[i+1]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadEncoding, err)
		}
	}

	if opts.Compressed {
		if ix.pointers, err = binio.ReadSlice[uint64](r, ix.split.buckets()+1); err != nil {
			return nil, fmt.Errorf("%w: read pointers: %w", ErrBadEncoding, err)
		}
		loBits, hiBits := ix.split.widths()
		if ix.lows, err = readPacked(r, ix.n, loBits); err != nil {
			return nil, err
		}
		if hiBits > 0 {
			if ix.lowsHi, err = readPacked(r, ix.n, hiBits); err != nil {
				return nil, err
			}
		}
	} else {
		if ix.lo, err = binio.ReadSlice[uint64](r, ix.n); err != nil {
			return nil, fmt.Errorf("%w: read hashes: %w", ErrBadEncoding, err)
		}
		if opts.extended() {
			if ix.hi, err = binio.ReadSlice[uint64](r, ix.n); err != nil {
				return nil, fmt.Errorf("%w: read hashes: %w", ErrBadEncoding, err)
			}
		}
	}
	if ix.values, err = readPacked(r, ix.n, opts.ValueBits); err != nil {
		return nil, err
	}
	if hdr.Flags&flagBitVector != 0 {
		if ix.valid, err = bitvector.ReadHashBitVector(r); err != nil {
			return nil, fmt.Errorf("%w: read bit vector: %w", ErrBadEncoding, err)
		}
	}

	ix.state.Store(uint32(StateFrozen))
	return ix, nil
}

func readPacked(r io.Reader, n int64, width int) (*packed.Array, error) {
	a, err := packed.Read(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read packed array: %w", ErrBadEncoding, err)
	}
	if a.Len() != n || a.Width() != width {
		return nil, fmt.Errorf("%w: packed array %dx%d, want %dx%d", ErrBadEncoding, a.Len(), a.Width(), n, width)
	}
	return a, nil
}

// Fingerprint returns the xxhash64 digest of the index encoding.
func (ix *Index) Fingerprint() (uint64, error) {
	d := hash.NewFingerprint()
	if _, err := ix.WriteTo(d); err != nil {
		return 0, err
	}
	return d.Sum64(), nil
}
