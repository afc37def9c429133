package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/kmerindex/blobstore"
)

var _ blobstore.Store = (*Store)(nil)

// ContentType is set on every object the store writes.
const ContentType = "application/x-kmerindex"

// errAborted fails the upload of a discarded blob.
var errAborted = errors.New("minio: upload aborted")

// Options configures a Store.
type Options struct {
	// Prefix is prepended to all keys (e.g. "indexes/").
	Prefix string

	// PartSize is the multipart chunk size of streamed uploads. 0 lets the
	// client choose.
	PartSize uint64

	// Metadata is attached to every object as user metadata, e.g. the
	// reference genome an index set was built from.
	Metadata map[string]string
}

// WithPrefix sets the root key prefix.
func WithPrefix(prefix string) func(o *Options) {
	return func(o *Options) { o.Prefix = prefix }
}

// WithPartSize sets the multipart chunk size of streamed uploads.
func WithPartSize(n uint64) func(o *Options) {
	return func(o *Options) { o.PartSize = n }
}

// WithMetadata attaches user metadata to every written object.
func WithMetadata(md map[string]string) func(o *Options) {
	return func(o *Options) { o.Metadata = md }
}

// Store implements blobstore.Store for MinIO and S3-compatible storage.
type Store struct {
	client *minio.Client
	bucket string
	opts   Options
}

// NewStore creates a store over bucket.
func NewStore(client *minio.Client, bucket string, optFns ...func(o *Options)) *Store {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Prefix = strings.TrimSuffix(opts.Prefix, "/")
	return &Store{client: client, bucket: bucket, opts: opts}
}

func (s *Store) key(name string) string {
	if s.opts.Prefix == "" {
		return name
	}
	return s.opts.Prefix + "/" + name
}

func (s *Store) putOptions() minio.PutObjectOptions {
	return minio.PutObjectOptions{
		ContentType:  ContentType,
		UserMetadata: s.opts.Metadata,
		PartSize:     s.opts.PartSize,
	}
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// Open stats the object and returns a handle that fetches it lazily.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return &blob{ctx: ctx, client: s.client, bucket: s.bucket, key: key, size: info.Size}, nil
}

// Put writes a blob in one request with a Content-MD5 check.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	opts := s.putOptions()
	opts.SendContentMd5 = true
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), opts)
	return err
}

// Create starts a streamed upload. The object appears on Close; Abort fails
// the upload so it never becomes visible.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()
	w := &writableBlob{pw: pw, done: make(chan error, 1)}

	key := s.key(name)
	opts := s.putOptions()
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, key, pr, -1, opts)
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// List returns the sorted names of all blobs below prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.key(prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimPrefix(strings.TrimPrefix(obj.Key, s.opts.Prefix), "/")
		if name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// blob serves ranged reads, and whole-object reads for frames and manifests.
type blob struct {
	ctx    context.Context
	client *minio.Client
	bucket string
	key    string
	size   int64

	once sync.Once
	data []byte
	err  error
}

func (b *blob) Size() int64 { return b.size }

func (b *blob) Close() error { return nil }

// Bytes fetches the object in a single GET. blobstore.ReadAll prefers it over
// ReadAt.
func (b *blob) Bytes() ([]byte, error) {
	b.once.Do(func() {
		obj, err := b.client.GetObject(b.ctx, b.bucket, b.key, minio.GetObjectOptions{})
		if err != nil {
			b.err = err
			return
		}
		defer func() { _ = obj.Close() }()

		b.data = make([]byte, b.size)
		_, b.err = io.ReadFull(obj, b.data)
	})
	return b.data, b.err
}

func (b *blob) ReadAt(p []byte, off int64) (int, error) {
	if off >= b.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	end := min(off+int64(len(p)), b.size) - 1
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, err
	}
	obj, err := b.client.GetObject(b.ctx, b.bucket, b.key, opts)
	if err != nil {
		return 0, err
	}
	defer func() { _ = obj.Close() }()

	want := int(end - off + 1)
	n, err := io.ReadFull(obj, p[:want])
	if err != nil {
		return n, err
	}
	if want < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// writableBlob feeds a background PutObject through a pipe.
type writableBlob struct {
	pw   *io.PipeWriter
	done chan error

	mu     sync.Mutex
	closed bool
}

func (w *writableBlob) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Sync is a no-op: the object is committed on Close.
func (w *writableBlob) Sync() error { return nil }

func (w *writableBlob) Close() error {
	return w.finish(nil)
}

func (w *writableBlob) Abort() error {
	return w.finish(errAborted)
}

func (w *writableBlob) finish(cause error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return io.ErrClosedPipe
	}
	w.closed = true

	if cause != nil {
		// The upload fails with cause; nothing was committed.
		_ = w.pw.CloseWithError(cause)
		<-w.done
		return nil
	}
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}
