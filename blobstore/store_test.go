package blobstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"local":  NewLocalStore(t.TempDir()),
	}
}

func TestStore_Lifecycle(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			data := []byte("AAAAAAAA\t80\nACGTACGT\t3\n")

			w, err := store.Create(ctx, "blacklists/w8")
			require.NoError(t, err)
			n, err := w.Write(data)
			require.NoError(t, err)
			require.Equal(t, len(data), n)
			require.NoError(t, w.Sync())
			require.NoError(t, w.Close())

			b, err := store.Open(ctx, "blacklists/w8")
			require.NoError(t, err)
			assert.Equal(t, int64(len(data)), b.Size())
			buf := make([]byte, 8)
			_, err = b.ReadAt(buf, 0)
			require.NoError(t, err)
			assert.Equal(t, "AAAAAAAA", string(buf))
			require.NoError(t, b.Close())

			got, err := ReadAll(ctx, store, "blacklists/w8")
			require.NoError(t, err)
			assert.Equal(t, data, got)

			require.NoError(t, store.Put(ctx, "sets/a/shard-0.idx", []byte{1}))
			require.NoError(t, store.Put(ctx, "sets/a/manifest.json", []byte("{}")))

			names, err := store.List(ctx, "sets/a/")
			require.NoError(t, err)
			assert.Equal(t, []string{"sets/a/manifest.json", "sets/a/shard-0.idx"}, names)

			ok, err := Exists(ctx, store, "sets/a/shard-0.idx")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, store.Delete(ctx, "sets/a/shard-0.idx"))
			require.NoError(t, store.Delete(ctx, "sets/a/shard-0.idx"))

			ok, err = Exists(ctx, store, "sets/a/shard-0.idx")
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = store.Open(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			require.NoError(t, store.Put(ctx, "x", []byte("first")))
			require.NoError(t, store.Put(ctx, "x", []byte("second")))

			got, err := ReadAll(ctx, store, "x")
			require.NoError(t, err)
			assert.Equal(t, "second", string(got))
		})
	}
}

func TestLocalStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	require.NoError(t, store.Put(t.Context(), "a/b.idx", []byte("data")))

	entries, err := os.ReadDir(filepath.Join(dir, "a"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.idx", entries[0].Name())
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "absent"))
	names, err := store.List(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMemoryStore_Corrupt(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(t.Context(), "x", []byte{0x0F}))
	assert.True(t, store.Corrupt("x", 0))
	assert.False(t, store.Corrupt("x", 1))
	assert.False(t, store.Corrupt("y", 0))

	got, err := ReadAll(t.Context(), store, "x")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF0}, got)
}

func TestDiscard_NeverVisible(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			require.NoError(t, store.Put(ctx, "sets/a/shard-1.idx", []byte("old")))

			w, err := store.Create(ctx, "sets/a/shard-1.idx")
			require.NoError(t, err)
			_, err = w.Write([]byte("partial"))
			require.NoError(t, err)

			_, ok := w.(Abortable)
			require.True(t, ok)
			require.NoError(t, Discard(ctx, store, "sets/a/shard-1.idx", w))

			// Aborting keeps what was stored before.
			got, err := ReadAll(ctx, store, "sets/a/shard-1.idx")
			require.NoError(t, err)
			assert.Equal(t, "old", string(got))

			names, err := store.List(ctx, "sets/a/")
			require.NoError(t, err)
			assert.Equal(t, []string{"sets/a/shard-1.idx"}, names)
		})
	}
}

// closeOnlyBlob hides the Abort method of a memory blob.
type closeOnlyBlob struct{ WritableBlob }

func TestDiscard_FallsBackToDelete(t *testing.T) {
	ctx := t.Context()
	store := NewMemoryStore()

	w, err := store.Create(ctx, "x")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)

	require.NoError(t, Discard(ctx, store, "x", closeOnlyBlob{w}))
	ok, err := Exists(ctx, store, "x")
	require.NoError(t, err)
	assert.False(t, ok)
}
