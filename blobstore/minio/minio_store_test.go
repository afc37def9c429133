package minio

import (
	"testing"

	"github.com/hupe1980/kmerindex/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := t.Context()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	const bucket = "test-kmerindex"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, WithPrefix("test-prefix/"), WithMetadata(map[string]string{"reference": "hg38"}))

	data := []byte("AAAAAAAA\t80\n")
	require.NoError(t, store.Put(ctx, "blacklists/w8", data))

	got, err := blobstore.ReadAll(ctx, store, "blacklists/w8")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	b, err := store.Open(ctx, "blacklists/w8")
	require.NoError(t, err)
	buf := make([]byte, 3)
	_, err = b.ReadAt(buf, 8)
	require.NoError(t, err)
	assert.Equal(t, "\t80", string(buf))
	require.NoError(t, b.Close())

	names, err := store.List(ctx, "blacklists/")
	require.NoError(t, err)
	assert.Contains(t, names, "blacklists/w8")

	wb, err := store.Create(ctx, "stream.idx")
	require.NoError(t, err)
	_, err = wb.Write([]byte("streamed data"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	b, err = store.Open(ctx, "stream.idx")
	require.NoError(t, err)
	assert.Equal(t, int64(13), b.Size())
	require.NoError(t, b.Close())

	info, err := client.StatObject(ctx, bucket, "test-prefix/stream.idx", minio.StatObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, ContentType, info.ContentType)

	wb, err = store.Create(ctx, "aborted.idx")
	require.NoError(t, err)
	_, err = wb.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, blobstore.Discard(ctx, store, "aborted.idx", wb))
	_, err = store.Open(ctx, "aborted.idx")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "blacklists/w8"))
	require.NoError(t, store.Delete(ctx, "stream.idx"))

	_, err = store.Open(ctx, "blacklists/w8")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
