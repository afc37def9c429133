package psort

import (
	"cmp"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermutation_DeterministicAcrossThreads(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	keys := make([]uint64, 50_000)
	for i := range keys {
		keys[i] = uint64(rng.Intn(1000))
	}
	compare := func(a, b int) int { return cmp.Compare(keys[a], keys[b]) }

	want := Permutation(len(keys), 1, compare)
	for _, threads := range []int{2, 3, 8} {
		got := Permutation(len(keys), threads, compare)
		require.Equal(t, want, got, "threads %d", threads)
	}

	for i := 1; i < len(want); i++ {
		a, b := want[i-1], want[i]
		require.LessOrEqual(t, keys[a], keys[b])
		if keys[a] == keys[b] {
			require.Less(t, a, b)
		}
	}
}

func TestPermutation_Small(t *testing.T) {
	keys := []int{3, 1, 2, 1}
	got := Permutation(len(keys), 4, func(a, b int) int { return cmp.Compare(keys[a], keys[b]) })
	assert.Equal(t, []int{1, 3, 2, 0}, got)

	assert.Empty(t, Permutation(0, 4, func(a, b int) int { return 0 }))
}

func TestForEachChunk(t *testing.T) {
	var covered atomic.Int64
	err := ForEachChunk(1000, 4, func(lo, hi int) error {
		covered.Add(int64(hi - lo))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), covered.Load())

	sentinel := assert.AnError
	err = ForEachChunk(10, 3, func(lo, hi int) error {
		if lo == 0 {
			return sentinel
		}
		return nil
	})
	assert.ErrorIs(t, err, sentinel)

	assert.NoError(t, ForEachChunk(0, 4, func(lo, hi int) error { return sentinel }))
}
