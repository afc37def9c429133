package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/kmerindex/blobstore"
)

// Client is the subset of the S3 API the store needs. *s3.Client satisfies it.
type Client interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// errAborted fails the upload of a discarded blob.
var errAborted = errors.New("s3: upload aborted")

// joinKey joins a root prefix and a blob name with exactly one slash.
// Unlike path.Join it keeps a trailing slash, which List prefixes rely on.
func joinKey(prefix, name string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// blob serves ranged reads, and whole-object reads for frames and manifests.
type blob struct {
	ctx    context.Context
	client Client
	bucket string
	key    string
	size   int64

	once sync.Once
	data []byte
	err  error
}

func (b *blob) Close() error { return nil }

func (b *blob) Size() int64 { return b.size }

// Bytes fetches the object in a single GET. blobstore.ReadAll prefers it over
// ReadAt.
func (b *blob) Bytes() ([]byte, error) {
	b.once.Do(func() {
		b.data = make([]byte, b.size)
		_, b.err = b.read(b.data, nil)
	})
	return b.data, b.err
}

// ReadAt reads len(p) bytes starting at offset off with a ranged GET.
func (b *blob) ReadAt(p []byte, off int64) (int, error) {
	if off >= b.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	end := min(off+int64(len(p)), b.size) - 1
	want := int(end - off + 1)
	n, err := b.read(p[:want], aws.String(fmt.Sprintf("bytes=%d-%d", off, end)))
	if err != nil {
		return n, err
	}
	if want < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *blob) read(p []byte, rng *string) (int, error) {
	resp, err := b.client.GetObject(b.ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
		Range:  rng,
	})
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	return io.ReadFull(resp.Body, p)
}

// listObjects returns the sorted names below fullPrefix, relative to rootPrefix.
func listObjects(ctx context.Context, client Client, bucket, fullPrefix, rootPrefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(fullPrefix),
	})

	root := strings.TrimSuffix(rootPrefix, "/")
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			rel := aws.ToString(obj.Key)
			if root != "" {
				rel = strings.TrimPrefix(strings.TrimPrefix(rel, root), "/")
			}
			keys = append(keys, rel)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// openBlob heads the object and returns a ranged reader for it.
func openBlob(ctx context.Context, client Client, bucket, key string) (*blob, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, blobstore.ErrNotFound
		}
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}

	return &blob{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// writableBlob streams writes through a pipe into a manager.Uploader.
type writableBlob struct {
	pw   *io.PipeWriter
	done chan error

	mu     sync.Mutex
	closed bool
}

func (b *writableBlob) Write(p []byte) (int, error) {
	return b.pw.Write(p)
}

// Sync is a no-op: the upload is only committed on Close.
func (b *writableBlob) Sync() error {
	return nil
}

func (b *writableBlob) Close() error {
	return b.finish(nil)
}

// Abort fails the upload. The uploader removes the parts of a multipart
// upload unless LeavePartsOnError is set.
func (b *writableBlob) Abort() error {
	return b.finish(errAborted)
}

func (b *writableBlob) finish(cause error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return io.ErrClosedPipe
	}
	b.closed = true

	if cause != nil {
		// The upload fails with cause; nothing was committed.
		_ = b.pw.CloseWithError(cause)
		<-b.done
		return nil
	}
	if err := b.pw.Close(); err != nil {
		return err
	}
	return <-b.done
}
