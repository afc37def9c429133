package index

import (
	"fmt"
	"strings"

	"github.com/hupe1980/kmerindex/internal/bitvector"
	"github.com/hupe1980/kmerindex/internal/packed"
)

// MemoryReport breaks down the bytes held by an index, per array.
type MemoryReport struct {
	Hashes          int64
	Values          int64
	InitialPointers int64
	BitVector       int64
	Total           int64
}

// String renders the report one array per line.
func (m MemoryReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "hashes:           %d\n", m.Hashes)
	fmt.Fprintf(&sb, "values:           %d\n", m.Values)
	fmt.Fprintf(&sb, "initial pointers: %d\n", m.InitialPointers)
	fmt.Fprintf(&sb, "bit vector:       %d\n", m.BitVector)
	fmt.Fprintf(&sb, "total:            %d", m.Total)
	return sb.String()
}

func (m *MemoryReport) sum() {
	m.Total = m.Hashes + m.Values + m.InitialPointers + m.BitVector
}

// MemoryFor returns the bytes an index with opts would hold at full capacity.
func MemoryFor(optFns ...func(o *Options)) (MemoryReport, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.normalize(); err != nil {
		return MemoryReport{}, err
	}

	var m MemoryReport
	if opts.Compressed {
		lo, hi := newSplitter(opts.HashBits, opts.PointerBits).widths()
		m.Hashes = packed.Bytes(opts.Capacity, lo) + packed.Bytes(opts.Capacity, hi)
		m.InitialPointers = (int64(1)<<uint(opts.PointerBits) + 1) * 8
	} else {
		m.Hashes = opts.Capacity * 8
		if opts.extended() {
			m.Hashes *= 2
		}
	}
	m.Values = packed.Bytes(opts.Capacity, opts.ValueBits)

	if opts.BitVectorBits > 0 {
		handle, err := bitvector.NewHashBitHandle(min(opts.HashBits, bitvector.MaxHashBits), opts.BitVectorBits)
		if err != nil {
			return MemoryReport{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		m.BitVector = int64(handle.Bytes())
	}
	m.sum()
	return m, nil
}

// Memory returns the bytes the index currently holds.
func (ix *Index) Memory() MemoryReport {
	var m MemoryReport
	m.Hashes = int64(cap(ix.lo)+cap(ix.hi)) * 8
	if ix.lows != nil {
		m.Hashes += ix.lows.Bytes()
	}
	if ix.lowsHi != nil {
		m.Hashes += ix.lowsHi.Bytes()
	}
	if ix.values != nil {
		m.Values = ix.values.Bytes()
	}
	m.InitialPointers = int64(len(ix.pointers)) * 8
	if ix.valid != nil {
		m.BitVector = ix.valid.Bytes()
	}
	m.sum()
	return m
}
