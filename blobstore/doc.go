// Package blobstore provides the storage abstraction for persisted k-mer indexes.
//
// A Store holds immutable blobs addressed by slash-separated names: frozen index
// shards, set manifests and blacklist files. Implementations must be safe for
// concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with mmap reads and atomic rename writes
//   - MemoryStore: in-memory, for tests
//   - minio.Store: MinIO and other S3-compatible object stores
//   - s3.Store: Amazon S3 with multipart uploads
//
// # Custom Implementations
//
// Implement the Store interface to support custom storage backends:
//
//	type Store interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
