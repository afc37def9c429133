package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/kmerindex/blobstore"
	"github.com/hupe1980/kmerindex/index"
	"github.com/hupe1980/kmerindex/internal/compress"
	"github.com/hupe1980/kmerindex/internal/hash"
	"github.com/hupe1980/kmerindex/internal/resource"
)

// SaveIndex writes a frozen index to store under name.
func SaveIndex(ctx context.Context, store blobstore.Store, name string, ix *index.Index, optFns ...func(o *Options)) error {
	opts := buildOptions(optFns)
	_, err := saveIndex(ctx, store, name, ix, opts)
	return err
}

// saveIndex writes ix and returns its fingerprint.
func saveIndex(ctx context.Context, store blobstore.Store, name string, ix *index.Index, opts Options) (uint64, error) {
	var raw bytes.Buffer
	fp := hash.NewFingerprint()
	if _, err := ix.WriteTo(io.MultiWriter(&raw, fp)); err != nil {
		return 0, fmt.Errorf("encode %s: %w", name, err)
	}

	payload, used, err := compress.Block(raw.Bytes(), opts.Compression)
	if err != nil {
		return 0, fmt.Errorf("compress %s: %w", name, err)
	}
	hdr := frameHeader{
		Magic:    MagicNumber,
		Version:  Version,
		Codec:    used,
		Size:     uint64(raw.Len()),
		Checksum: hash.CRC32C(payload),
	}

	blob, err := store.Create(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}
	w := resource.NewRateLimitedWriter(ctx, blob, opts.Controller)
	if err := writeFrame(w, blob, hdr, payload); err != nil {
		_ = blobstore.Discard(ctx, store, name, blob)
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	if err := blob.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", name, err)
	}

	opts.Logger.Debug("saved index", "name", name, "codec", used.String(),
		"size", raw.Len(), "stored", len(payload))
	return fp.Sum64(), nil
}

func writeFrame(w io.Writer, blob blobstore.WritableBlob, hdr frameHeader, payload []byte) error {
	if _, err := w.Write(hdr.marshal()); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	return blob.Sync()
}

// LoadIndex reads an index written by SaveIndex. The checksum is verified
// before decoding; a mismatch returns an error satisfying errors.Is(err, ErrCorrupt).
func LoadIndex(ctx context.Context, store blobstore.Store, name string, optFns ...func(o *Options)) (*index.Index, error) {
	opts := buildOptions(optFns)
	ix, _, err := loadIndex(ctx, store, name, opts)
	return ix, err
}

// loadIndex reads an index and returns it with the fingerprint of its encoding.
func loadIndex(ctx context.Context, store blobstore.Store, name string, opts Options) (*index.Index, uint64, error) {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", name, err)
	}
	hdr, err := parseHeader(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", name, err)
	}

	payload := data[headerSize:]
	if err := verifyChecksum(name, payload, hdr.Checksum); err != nil {
		return nil, 0, err
	}
	raw, err := compress.Unblock(payload, hdr.Codec, int(hdr.Size))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %w", ErrCorrupt, name, err)
	}

	r := bytes.NewReader(raw)
	ix, err := index.ReadFrom(r, opts.Logger)
	if err != nil {
		if errors.Is(err, index.ErrBadEncoding) {
			return nil, 0, fmt.Errorf("%w: %s: %w", ErrIncompatibleFormat, name, err)
		}
		return nil, 0, fmt.Errorf("decode %s: %w", name, err)
	}
	if r.Len() != 0 {
		return nil, 0, fmt.Errorf("%w: %s: %d trailing bytes", ErrCorrupt, name, r.Len())
	}

	opts.Logger.Debug("loaded index", "name", name, "entries", ix.Len())
	return ix, hash.Fingerprint(raw), nil
}
