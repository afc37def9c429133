package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/kmerindex/blobstore"
)

var _ blobstore.Store = (*Store)(nil)

// Options configures a Store.
type Options struct {
	// Prefix is prepended to all keys (e.g. "indexes/").
	Prefix string

	// Region overrides the region from the default AWS config chain. Used by New only.
	Region string

	// Upload configures streaming uploads.
	Upload UploadConfig

	// Metadata is attached to every object as user metadata, e.g. the
	// reference genome an index set was built from.
	Metadata map[string]string
}

// WithMetadata attaches user metadata to every written object.
func WithMetadata(md map[string]string) func(o *Options) {
	return func(o *Options) { o.Metadata = md }
}

// WithPrefix sets the root key prefix.
func WithPrefix(prefix string) func(o *Options) {
	return func(o *Options) { o.Prefix = prefix }
}

// WithRegion sets the AWS region used by New.
func WithRegion(region string) func(o *Options) {
	return func(o *Options) { o.Region = region }
}

// WithUploadConfig sets the multipart upload configuration.
func WithUploadConfig(cfg UploadConfig) func(o *Options) {
	return func(o *Options) { o.Upload = cfg }
}

// Store implements blobstore.Store for Amazon S3.
type Store struct {
	client   Client
	bucket   string
	opts     Options
	uploader *manager.Uploader
}

// New creates a Store using the default AWS credential and config chain.
func New(ctx context.Context, bucket string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{Upload: DefaultUploadConfig()}
	for _, fn := range optFns {
		fn(&opts)
	}

	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewStore(s3.NewFromConfig(cfg), bucket, optFns...), nil
}

// NewStore creates a Store over an existing client.
func NewStore(client Client, bucket string, optFns ...func(o *Options)) *Store {
	opts := Options{Upload: DefaultUploadConfig()}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		client:   client,
		bucket:   bucket,
		opts:     opts,
		uploader: newUploader(client, opts.Upload),
	}
}

func (s *Store) key(name string) string {
	return joinKey(s.opts.Prefix, name)
}

// Open heads the object and returns a handle that fetches it lazily.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	return openBlob(ctx, s.client, s.bucket, s.key(name))
}

// Create starts a streaming upload. The object appears when the blob is
// closed; Abort fails the upload so it never becomes visible.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return streamUpload(ctx, s.uploader, s.bucket, s.key(name), s.opts), nil
}

// Put writes a blob in a single request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	return putObject(ctx, s.client, s.bucket, s.key(name), data, s.opts)
}

// Delete removes a blob. S3 deletes are idempotent.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	return err
}

// List returns all blob names with the given prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	return listObjects(ctx, s.client, s.bucket, s.key(prefix), s.opts.Prefix)
}
