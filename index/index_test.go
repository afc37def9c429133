package index

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/kmerindex/filter"
	"github.com/hupe1980/kmerindex/kmer"
)

type entry struct {
	hash  uint64
	value uint64
}

// build adds entries to a new index, twice for the compressed strategy, and
// freezes it.
func build(t *testing.T, entries []entry, optFns ...func(o *Options)) *Index {
	t.Helper()
	ix, err := New(optFns...)
	require.NoError(t, err)

	passes := 1
	if ix.Options().Compressed {
		passes = 2
	}
	for range passes {
		for _, e := range entries {
			require.NoError(t, ix.Add(e.hash, e.value))
		}
		require.NoError(t, ix.Freeze())
	}
	require.Equal(t, StateFrozen, ix.State())
	return ix
}

func values(t *testing.T, ix *Index, hash uint64) []uint64 {
	t.Helper()
	var out []uint64
	require.NoError(t, ix.Search(hash, func(v uint64) bool {
		out = append(out, v)
		return true
	}))
	return out
}

func scan(t *testing.T, ix *Index) []entry {
	t.Helper()
	var out []entry
	require.NoError(t, ix.Scan(func(h kmer.Hash, v uint64) bool {
		out = append(out, entry{h.Lo, v})
		return true
	}))
	return out
}

var strategies = []struct {
	name string
	opts func(o *Options)
}{
	{"simple", func(o *Options) {}},
	{"simple/bitvector", func(o *Options) { o.BitVectorBits = 6 }},
	{"compressed", func(o *Options) { o.Compressed = true; o.PointerBits = 4 }},
	{"compressed/bitvector", func(o *Options) { o.Compressed = true; o.PointerBits = 2; o.BitVectorBits = 8 }},
}

func TestIndex_SmallScenario(t *testing.T) {
	entries := []entry{{9, 40}, {0, 41}, {1, 42}, {9, 43}, {1, 44}}

	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			ix := build(t, entries, func(o *Options) {
				o.Capacity = 10
				o.HashBits = 16
				o.ValueBits = 8
			}, s.opts)

			for hash, want := range map[uint64]int{9: 2, 1: 2, 0: 1, 5: 0} {
				n, err := ix.Count(hash)
				require.NoError(t, err)
				assert.Equal(t, want, n, "hash %d", hash)
			}
			assert.Equal(t, []uint64{40, 43}, values(t, ix, 9))
			assert.Equal(t, []entry{{0, 41}, {1, 42}, {1, 44}, {9, 40}, {9, 43}}, scan(t, ix))
			assert.Equal(t, int64(5), ix.Len())

			h, err := ix.Hash(3)
			require.NoError(t, err)
			assert.Equal(t, kmer.FromUint64(9), h)
			v, err := ix.Value(2)
			require.NoError(t, err)
			assert.Equal(t, uint64(44), v)
			_, err = ix.Hash(5)
			assert.ErrorIs(t, err, ErrInvalidArgument)

			n, err := ix.NumHashes()
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)

			require.NoError(t, ix.GlobalIntegrity())
		})
	}
}

func TestIndex_SearchStopsEarly(t *testing.T) {
	ix := build(t, []entry{{3, 1}, {3, 2}, {3, 3}}, func(o *Options) { o.Capacity = 3 })

	var seen []uint64
	require.NoError(t, ix.Search(3, func(v uint64) bool {
		seen = append(seen, v)
		return len(seen) < 2
	}))
	assert.Equal(t, []uint64{1, 2}, seen)
}

func TestIndex_All(t *testing.T) {
	ix := build(t, []entry{{2, 1}, {1, 2}}, func(o *Options) { o.Capacity = 2 })

	seq, err := ix.All()
	require.NoError(t, err)
	var hashes []uint64
	for h := range seq {
		hashes = append(hashes, h.Lo)
	}
	assert.Equal(t, []uint64{1, 2}, hashes)
}

func TestIndex_StateMachine(t *testing.T) {
	ix, err := New(func(o *Options) { o.Capacity = 4 })
	require.NoError(t, err)
	assert.Equal(t, StatePreAdd, ix.State())

	_, err = ix.Count(1)
	assert.ErrorIs(t, err, ErrIllegalState)
	assert.ErrorIs(t, ix.Search(1, func(uint64) bool { return true }), ErrIllegalState)
	assert.ErrorIs(t, ix.Scan(func(kmer.Hash, uint64) bool { return true }), ErrIllegalState)
	_, err = ix.All()
	assert.ErrorIs(t, err, ErrIllegalState)
	assert.ErrorIs(t, ix.GlobalIntegrity(), ErrIllegalState)
	assert.Nil(t, ix.Histogram())

	require.NoError(t, ix.Add(1, 1))
	require.NoError(t, ix.Freeze())

	assert.ErrorIs(t, ix.Add(2, 2), ErrIllegalState)

	err = ix.Freeze()
	assert.ErrorIs(t, err, ErrClosedTwice)
	assert.ErrorIs(t, err, ErrIllegalState)
	assert.EqualError(t, err, "Index closed twice")
}

func TestIndex_CompressedStates(t *testing.T) {
	ix, err := New(func(o *Options) {
		o.Capacity = 4
		o.HashBits = 8
		o.Compressed = true
	})
	require.NoError(t, err)
	assert.Equal(t, 8, ix.Options().PointerBits)

	require.NoError(t, ix.Add(7, 1))
	assert.Equal(t, int64(1), ix.Len())
	require.NoError(t, ix.Freeze())
	assert.Equal(t, StateAdd, ix.State())
	assert.Equal(t, int64(0), ix.Len())

	_, err = ix.Count(7)
	assert.ErrorIs(t, err, ErrIllegalState)

	require.NoError(t, ix.Add(7, 1))
	require.NoError(t, ix.Freeze())
	assert.Equal(t, StateFrozen, ix.State())
}

func TestIndex_Capacity(t *testing.T) {
	ix, err := New(func(o *Options) { o.Capacity = 2 })
	require.NoError(t, err)
	require.NoError(t, ix.Add(1, 1))
	require.NoError(t, ix.Add(2, 2))

	err = ix.Add(3, 3)
	var ce *CapacityError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.EqualError(t, err, "Too many items added: 3")

	cx, err := New(func(o *Options) {
		o.Capacity = 1
		o.HashBits = 8
		o.Compressed = true
	})
	require.NoError(t, err)
	require.NoError(t, cx.Add(1, 1))
	assert.EqualError(t, cx.Add(2, 2), "Too many items pre-added: 2 > 1")
}

func TestIndex_CapacityZero(t *testing.T) {
	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			ix := build(t, nil, func(o *Options) { o.HashBits = 16 }, s.opts)

			n, err := ix.Count(5)
			require.NoError(t, err)
			assert.Zero(t, n)
			assert.Zero(t, ix.Len())
			assert.Empty(t, scan(t, ix))
			require.NoError(t, ix.GlobalIntegrity())
		})
	}

	ix, err := New()
	require.NoError(t, err)
	assert.EqualError(t, ix.Add(1, 1), "Too many items added: 1")

	cx, err := New(func(o *Options) {
		o.HashBits = 8
		o.Compressed = true
	})
	require.NoError(t, err)
	assert.EqualError(t, cx.Add(1, 1), "Too many items pre-added: 1 > 0")
}

func TestIndex_Widths(t *testing.T) {
	ix, err := New(func(o *Options) {
		o.Capacity = 4
		o.HashBits = 10
		o.ValueBits = 3
	})
	require.NoError(t, err)

	assert.ErrorIs(t, ix.Add(1<<10, 0), ErrInvalidArgument)
	assert.ErrorIs(t, ix.Add(1, 8), ErrInvalidArgument)
	require.NoError(t, ix.Add(1<<10-1, 7))
	assert.Equal(t, int64(1), ix.Len())
}

func TestOptions_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts func(o *Options)
	}{
		{"negative capacity", func(o *Options) { o.Capacity = -1 }},
		{"zero hash bits", func(o *Options) { o.HashBits = 0 }},
		{"hash bits over 128", func(o *Options) { o.HashBits = 129 }},
		{"value bits over 64", func(o *Options) { o.ValueBits = 65 }},
		{"bit vector too wide", func(o *Options) { o.BitVectorBits = 33 }},
		{"pointer bits over hash bits", func(o *Options) { o.Compressed = true; o.HashBits = 8; o.PointerBits = 9 }},
		{"pointer bits over 32", func(o *Options) { o.Compressed = true; o.HashBits = 100; o.PointerBits = 33 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	ix, err := New(func(o *Options) { o.PointerBits = 12; o.Threads = -3 })
	require.NoError(t, err)
	assert.Zero(t, ix.Options().PointerBits)
	assert.Equal(t, 1, ix.Options().Threads)

	for _, hashBits := range []int{80, 90, 96, 128} {
		ix, err = New(func(o *Options) { o.Compressed = true; o.HashBits = hashBits })
		require.NoError(t, err)
		assert.Equal(t, 20, ix.Options().PointerBits, "W=%d", hashBits)
	}

	ix, err = New(func(o *Options) { o.Compressed = true; o.HashBits = 100; o.PointerBits = 30 })
	require.NoError(t, err)
	assert.Equal(t, 30, ix.Options().PointerBits)
}

func TestIndex_CompressedInconsistent(t *testing.T) {
	newIndex := func(t *testing.T) *Index {
		ix, err := New(func(o *Options) {
			o.Capacity = 4
			o.HashBits = 8
			o.Compressed = true
			o.PointerBits = 4
		})
		require.NoError(t, err)
		require.NoError(t, ix.Add(0x10, 1))
		require.NoError(t, ix.Add(0x20, 2))
		require.NoError(t, ix.Freeze())
		return ix
	}

	t.Run("overflow", func(t *testing.T) {
		ix := newIndex(t)
		require.NoError(t, ix.Add(0x10, 1))
		err := ix.Add(0x11, 1)
		assert.ErrorIs(t, err, ErrInconsistent)
		assert.Contains(t, err.Error(), "more than")
	})

	t.Run("never pre-added", func(t *testing.T) {
		ix := newIndex(t)
		err := ix.Add(0x30, 1)
		assert.ErrorIs(t, err, ErrInconsistent)
		assert.Contains(t, err.Error(), "never pre-added")
	})

	t.Run("missing adds", func(t *testing.T) {
		ix := newIndex(t)
		require.NoError(t, ix.Add(0x10, 1))
		assert.ErrorIs(t, ix.Freeze(), ErrInconsistent)
		assert.Equal(t, StateAdd, ix.State())
	})
}

func TestIndex_ConcurrentModification(t *testing.T) {
	ix, err := New(func(o *Options) { o.Capacity = 4 })
	require.NoError(t, err)
	require.NoError(t, ix.Add(1, 1))

	var rounds []int
	ix.freezeHook = func(round int) {
		rounds = append(rounds, round)
		if round == 1 {
			assert.ErrorIs(t, ix.Add(2, 2), ErrConcurrentModification)
			assert.ErrorIs(t, ix.Freeze(), ErrConcurrentModification)
		}
	}
	require.NoError(t, ix.Freeze())
	assert.Equal(t, []int{0, 1, 2}, rounds)
	assert.Equal(t, int64(1), ix.Len())
}

func TestIndex_ModifiedDuringFreeze(t *testing.T) {
	ix, err := New(func(o *Options) { o.Capacity = 4 })
	require.NoError(t, err)
	require.NoError(t, ix.Add(1, 1))

	ix.freezeHook = func(round int) {
		if round == 1 {
			ix.modCount.Add(1)
		}
	}
	assert.ErrorIs(t, ix.Freeze(), ErrConcurrentModification)
	assert.Equal(t, StatePreAdd, ix.State())
}

func TestIndex_ModifiedAfterAssemblyLeavesStorage(t *testing.T) {
	entries := []entry{{9, 40}, {0, 41}, {1, 42}, {9, 43}}

	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			ix, err := New(func(o *Options) {
				o.Capacity = 8
				o.HashBits = 16
				o.ValueBits = 8
				o.Filter = filter.Fixed(1)
			}, s.opts)
			require.NoError(t, err)

			if ix.Options().Compressed {
				for _, e := range entries {
					require.NoError(t, ix.Add(e.hash, e.value))
				}
				require.NoError(t, ix.Freeze())
			}
			for _, e := range entries {
				require.NoError(t, ix.Add(e.hash, e.value))
			}
			before := ix.Memory()
			pointers := slices.Clone(ix.pointers)

			ix.freezeHook = func(round int) {
				if round == 2 {
					ix.modCount.Add(1)
				}
			}
			assert.ErrorIs(t, ix.Freeze(), ErrConcurrentModification)
			assert.NotEqual(t, StateFrozen, ix.State())
			assert.Equal(t, int64(len(entries)), ix.Len())
			assert.Equal(t, before, ix.Memory())
			assert.Equal(t, pointers, ix.pointers)
			assert.Nil(t, ix.Histogram())

			ix.freezeHook = nil
			require.NoError(t, ix.Freeze())
			require.NoError(t, ix.GlobalIntegrity())
			// Hash 9 occurs twice and is filtered out.
			assert.Equal(t, []entry{{0, 41}, {1, 42}}, scan(t, ix))
		})
	}
}

func TestIndex_Filter(t *testing.T) {
	entries := []entry{{9, 40}, {0, 41}, {1, 42}, {9, 43}, {1, 44}}

	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			ix := build(t, entries, func(o *Options) {
				o.Capacity = 10
				o.HashBits = 16
				o.Filter = filter.Fixed(1)
			}, s.opts)

			assert.Equal(t, []entry{{0, 41}}, scan(t, ix))
			stats, err := ix.Stats()
			require.NoError(t, err)
			assert.Equal(t, Stats{
				Entries:          1,
				Hashes:           1,
				DiscardedEntries: 4,
				DiscardedHashes:  2,
				MaxFrequency:     2,
			}, stats)

			// The histogram is taken before filtering.
			assert.Equal(t, int64(3), ix.Histogram().TotalHashes())
			assert.Equal(t, int64(5), ix.Histogram().TotalOccurrences())

			n, err := ix.Count(9)
			require.NoError(t, err)
			assert.Zero(t, n)
			require.NoError(t, ix.GlobalIntegrity())
		})
	}
}

func TestIndex_SharedProportionalFilter(t *testing.T) {
	shared, err := filter.Proportional(0.5, 0, 0)
	require.NoError(t, err)
	opts := func(o *Options) {
		o.Capacity = 8
		o.Filter = shared
	}

	// a: dropping both 7s keeps 6 of 8 occurrences, so its cutoff is 1.
	// b: dropping them would keep 1 of 3, so b keeps everything.
	a := build(t, []entry{{7, 1}, {7, 2}, {1, 1}, {2, 1}, {3, 1}, {4, 1}, {5, 1}, {6, 1}}, opts)
	b := build(t, []entry{{7, 1}, {7, 2}, {1, 1}}, opts)

	n, err := a.Count(7)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = a.Count(6)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = b.Count(7)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok := shared.Cutoff()
	assert.False(t, ok, "shared method must stay uninitialized")
}

func TestIndex_Blacklist(t *testing.T) {
	bl, err := filter.Blacklist([]uint64{0b0101}, 4, 2)
	require.NoError(t, err)

	ix := build(t, []entry{{0b01010101, 1}, {0b01010100, 2}}, func(o *Options) {
		o.Capacity = 2
		o.HashBits = 8
		o.Filter = bl
	})
	assert.Equal(t, []entry{{0b01010100, 2}}, scan(t, ix))

	bad, err := New(func(o *Options) {
		o.Capacity = 1
		o.HashBits = 16
		o.Filter = bl
	})
	require.NoError(t, err)
	require.NoError(t, bad.Add(1, 1))
	assert.ErrorIs(t, bad.Freeze(), filter.ErrWidthMismatch)
	assert.Equal(t, StatePreAdd, bad.State())
}

func TestIndex_Extended(t *testing.T) {
	big := func(hi, lo uint64) kmer.Hash { return kmer.Hash{Hi: hi, Lo: lo} }
	hashes := []kmer.Hash{
		big(1<<15, 3),
		big(0, ^uint64(0)),
		big(1<<15, 3),
		big(0xFFFF, 0),
		big(2, 1<<63),
	}

	tests := []struct {
		name string
		opts func(o *Options)
	}{
		{"simple", func(o *Options) {}},
		{"simple/bitvector", func(o *Options) { o.BitVectorBits = 10 }},
		{"compressed", func(o *Options) { o.Compressed = true; o.PointerBits = 16 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := New(func(o *Options) {
				o.Capacity = 8
				o.HashBits = 80
				o.ValueBits = 16
			}, tt.opts)
			require.NoError(t, err)

			passes := 1
			if ix.Options().Compressed {
				passes = 2
			}
			for range passes {
				for i, h := range hashes {
					require.NoError(t, ix.AddExtended(h, uint64(i)))
				}
				require.NoError(t, ix.Freeze())
			}

			assert.ErrorIs(t, ix.AddExtended(big(1<<16, 0), 0), ErrIllegalState)

			n, err := ix.CountExtended(big(1<<15, 3))
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			n, err = ix.CountExtended(big(1<<15, 4))
			require.NoError(t, err)
			assert.Zero(t, n)

			n, err = ix.CountExtended(big(1<<16, 3))
			require.NoError(t, err)
			assert.Zero(t, n)

			var got []kmer.Hash
			require.NoError(t, ix.Scan(func(h kmer.Hash, _ uint64) bool {
				got = append(got, h)
				return true
			}))
			assert.Equal(t, []kmer.Hash{
				big(0, ^uint64(0)), big(2, 1<<63), big(1<<15, 3), big(1<<15, 3), big(0xFFFF, 0),
			}, got)

			h, err := ix.Hash(4)
			require.NoError(t, err)
			assert.Equal(t, big(0xFFFF, 0), h)
			require.NoError(t, ix.GlobalIntegrity())
		})
	}
}

func TestIndex_ExtendedHashTooWide(t *testing.T) {
	ix, err := New(func(o *Options) {
		o.Capacity = 1
		o.HashBits = 70
	})
	require.NoError(t, err)
	assert.ErrorIs(t, ix.AddExtended(kmer.Hash{Hi: 1 << 6}, 0), ErrInvalidArgument)
}

func randomEntries(n int, hashBits uint) []entry {
	r := rand.New(rand.NewPCG(7, 11))
	entries := make([]entry, n)
	for i := range entries {
		// A small hash space produces plenty of duplicate runs.
		entries[i] = entry{hash: r.Uint64N(uint64(n) / 4) << (hashBits - 20), value: r.Uint64N(1 << 20)}
	}
	return entries
}

func TestIndex_RandomAgainstReference(t *testing.T) {
	entries := randomEntries(20000, 40)
	ref := map[uint64][]uint64{}
	for _, e := range entries {
		ref[e.hash] = append(ref[e.hash], e.value)
	}

	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			ix := build(t, entries, func(o *Options) {
				o.Capacity = int64(len(entries))
				o.HashBits = 40
				o.ValueBits = 20
				o.Threads = 4
			}, s.opts)
			require.NoError(t, ix.GlobalIntegrity())

			for hash, want := range ref {
				n, err := ix.Count(hash)
				require.NoError(t, err)
				require.Equal(t, len(want), n, "hash %d", hash)
				assert.ElementsMatch(t, want, values(t, ix, hash))
			}
			n, err := ix.Count(1)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestIndex_FingerprintIndependentOfThreads(t *testing.T) {
	entries := randomEntries(50000, 40)

	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			var prints []uint64
			for _, threads := range []int{1, 4} {
				ix := build(t, entries, func(o *Options) {
					o.Capacity = int64(len(entries))
					o.HashBits = 40
					o.ValueBits = 20
					o.Threads = threads
				}, s.opts)
				fp, err := ix.Fingerprint()
				require.NoError(t, err)
				prints = append(prints, fp)
			}
			assert.Equal(t, prints[0], prints[1])
		})
	}
}

func TestIndex_GlobalIntegrityDetectsDisorder(t *testing.T) {
	ix := build(t, []entry{{1, 1}, {2, 2}, {3, 3}}, func(o *Options) { o.Capacity = 3 })
	require.NoError(t, ix.GlobalIntegrity())

	ix.lo[0], ix.lo[2] = ix.lo[2], ix.lo[0]
	assert.ErrorIs(t, ix.GlobalIntegrity(), ErrInconsistent)
}

func TestIndex_GlobalIntegrityDetectsPointers(t *testing.T) {
	ix := build(t, []entry{{1, 1}, {0x20, 2}}, func(o *Options) {
		o.Capacity = 2
		o.HashBits = 8
		o.Compressed = true
		o.PointerBits = 4
	})
	require.NoError(t, ix.GlobalIntegrity())

	ix.pointers[len(ix.pointers)-1] = 1
	assert.ErrorIs(t, ix.GlobalIntegrity(), ErrInconsistent)
}

// buildWide builds a compressed index of n random hashes of the given width,
// a quarter of them duplicated, with the default pointer width.
func buildWide(t *testing.T, hashBits, n int) *Index {
	t.Helper()
	r := rand.New(rand.NewPCG(uint64(hashBits), 17))
	mask := kmer.Mask(uint(hashBits))
	hashes := []kmer.Hash{{}, mask}
	for len(hashes) < n {
		h := kmer.Hash{Hi: r.Uint64(), Lo: r.Uint64()}.And(mask)
		hashes = append(hashes, h)
		if len(hashes)%4 == 0 {
			hashes = append(hashes, h)
		}
	}

	ix, err := New(func(o *Options) {
		o.Capacity = int64(len(hashes))
		o.HashBits = hashBits
		o.ValueBits = 16
		o.Compressed = true
	})
	require.NoError(t, err)
	for range 2 {
		for i, h := range hashes {
			require.NoError(t, ix.AddExtended(h, uint64(i)))
		}
		require.NoError(t, ix.Freeze())
	}
	return ix
}

func TestIndex_CompressedWideHashes(t *testing.T) {
	for _, hashBits := range []int{65, 84, 85, 90, 96, 100, 128} {
		t.Run(fmt.Sprintf("W=%d", hashBits), func(t *testing.T) {
			ix := buildWide(t, hashBits, 500)
			require.Equal(t, 20, ix.Options().PointerBits)
			require.NoError(t, ix.GlobalIntegrity())

			m := ix.Memory()
			assert.Equal(t, int64(1<<20+1)*8, m.InitialPointers)
			planned, err := MemoryFor(func(o *Options) {
				o.Capacity = ix.Capacity()
				o.HashBits = hashBits
				o.ValueBits = 16
				o.Compressed = true
			})
			require.NoError(t, err)
			assert.Equal(t, planned, m)

			ref := map[kmer.Hash][]uint64{}
			require.NoError(t, ix.Scan(func(h kmer.Hash, v uint64) bool {
				assert.True(t, h.FitsIn(hashBits))
				ref[h] = append(ref[h], v)
				return true
			}))
			assert.Len(t, ref, int(must(ix.NumHashes())))
			assert.Contains(t, ref, kmer.Hash{})
			assert.Contains(t, ref, kmer.Mask(uint(hashBits)))

			for h, want := range ref {
				var got []uint64
				require.NoError(t, ix.SearchExtended(h, func(v uint64) bool {
					got = append(got, v)
					return true
				}))
				assert.Equal(t, want, got, "hash %s", h)
			}

			// Same bucket and high word as a stored hash, other low bits.
			first, err := ix.Hash(0)
			require.NoError(t, err)
			miss := first
			miss.Lo ^= 1 << 1
			if _, ok := ref[miss]; !ok {
				n, err := ix.CountExtended(miss)
				require.NoError(t, err)
				assert.Zero(t, n)
			}
		})
	}
}

func TestMemoryFor_CompressedWideStaysSmall(t *testing.T) {
	// 500 entries of 96-bit hashes: 76 low bits per entry split 64+12.
	m, err := MemoryFor(func(o *Options) {
		o.Capacity = 500
		o.HashBits = 96
		o.ValueBits = 0
		o.Compressed = true
	})
	require.NoError(t, err)
	assert.Equal(t, MemoryReport{
		Hashes:          500*8 + 752,
		InitialPointers: (1<<20 + 1) * 8,
		Total:           500*8 + 752 + (1<<20+1)*8,
	}, m)
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
