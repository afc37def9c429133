package index

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/kmerindex/internal/resource"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSet_FreezeAndSearch(t *testing.T) {
	var logs syncBuffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	set, err := NewSet(t.Context(), 3, 2, func(o *Options) {
		o.Capacity = 4
		o.HashBits = 16
		o.Logger = logger
	})
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())

	for k := range set.Len() {
		require.NoError(t, set.Shard(k).Add(42, uint64(10*k)))
		require.NoError(t, set.Shard(k).Add(42, uint64(10*k+1)))
	}
	require.NoError(t, set.Freeze(t.Context(), 8))

	type hit struct {
		shard int
		value uint64
	}
	var hits []hit
	require.NoError(t, set.Search(42, func(shard int, v uint64) bool {
		hits = append(hits, hit{shard, v})
		return true
	}))
	assert.Equal(t, []hit{{0, 0}, {0, 1}, {1, 10}, {1, 11}, {2, 20}, {2, 21}}, hits)

	hits = hits[:0]
	require.NoError(t, set.Search(42, func(shard int, v uint64) bool {
		hits = append(hits, hit{shard, v})
		return len(hits) < 3
	}))
	assert.Len(t, hits, 3)

	out := logs.String()
	for _, job := range []string{"job=0", "job=1", "job=2"} {
		assert.Contains(t, out, job)
	}
	assert.Equal(t, 3, strings.Count(out, "start freeze job"))
}

func TestSet_ShardLogsCarryShard(t *testing.T) {
	var logs syncBuffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	set, err := NewSet(t.Context(), 2, 2, func(o *Options) {
		o.Capacity = 1
		o.Logger = logger
	})
	require.NoError(t, err)
	require.NoError(t, set.Freeze(t.Context(), 1))

	var frozen []string
	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.Contains(line, "index frozen") {
			frozen = append(frozen, line)
		}
	}
	require.Len(t, frozen, 2)
	assert.Contains(t, frozen[0], "shard=0")
	assert.Contains(t, frozen[1], "shard=1")
}

func TestSet_CompressedTwoPhase(t *testing.T) {
	set, err := NewSet(t.Context(), 2, 2, func(o *Options) {
		o.Capacity = 2
		o.HashBits = 12
		o.Compressed = true
	})
	require.NoError(t, err)

	for range 2 {
		for k := range set.Len() {
			require.NoError(t, set.Shard(k).Add(uint64(k+1), 7))
		}
		require.NoError(t, set.Freeze(t.Context(), 2))
	}
	n, err := set.Shard(1).Count(2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSet_FreezeReturnsShardError(t *testing.T) {
	set, err := NewSet(t.Context(), 4, 2, func(o *Options) { o.Capacity = 1 })
	require.NoError(t, err)
	require.NoError(t, set.Shard(2).Freeze())

	err = set.Freeze(t.Context(), 2)
	assert.ErrorIs(t, err, ErrClosedTwice)
	assert.Contains(t, err.Error(), "shard 2")
}

func TestSet_SearchBeforeFreeze(t *testing.T) {
	set, err := NewSet(t.Context(), 1, 1)
	require.NoError(t, err)
	err = set.Search(1, func(int, uint64) bool { return true })
	assert.ErrorIs(t, err, ErrIllegalState)
}

func TestSet_MemoryLimit(t *testing.T) {
	opts := func(o *Options) { o.Capacity = 1000 }
	report, err := MemoryFor(opts)
	require.NoError(t, err)

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 3 * report.Total})

	_, err = NewSet(t.Context(), 4, 1, opts, WithController(rc))
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.Zero(t, rc.MemoryUsage())

	set, err := NewSet(t.Context(), 3, 1, opts, WithController(rc))
	require.NoError(t, err)
	assert.Equal(t, 3*report.Total, rc.MemoryUsage())

	set.Close()
	assert.Zero(t, rc.MemoryUsage())
}

func TestSet_Invalid(t *testing.T) {
	_, err := NewSet(t.Context(), 0, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewSet(t.Context(), 2, 1, func(o *Options) { o.HashBits = 0 })
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSetOf(t *testing.T) {
	a := build(t, []entry{{1, 1}}, func(o *Options) { o.Capacity = 1 })
	b := build(t, []entry{{1, 2}}, func(o *Options) { o.Capacity = 1 })

	set := SetOf(nil, a, b)
	var got []uint64
	require.NoError(t, set.Search(1, func(_ int, v uint64) bool {
		got = append(got, v)
		return true
	}))
	assert.Equal(t, []uint64{1, 2}, got)
}
