package persistence

import (
	"context"
	"fmt"
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/kmerindex/blobstore"
	"github.com/hupe1980/kmerindex/codec"
	"github.com/hupe1980/kmerindex/index"
)

// ManifestName is the blob name of a set manifest, relative to its prefix.
const ManifestName = "manifest.json"

// manifestVersion is the current manifest layout version.
const manifestVersion = 1

// Manifest describes a saved index set.
type Manifest struct {
	Version     int         `json:"version"`
	Codec       string      `json:"codec"`
	Compression string      `json:"compression"`
	Shards      []ShardInfo `json:"shards"`
}

// ShardInfo describes one saved shard.
type ShardInfo struct {
	Name        string `json:"name"`
	Entries     int64  `json:"entries"`
	Fingerprint uint64 `json:"fingerprint"`
}

// ShardName returns the blob name of shard k under prefix.
func ShardName(prefix string, k int) string {
	return path.Join(prefix, fmt.Sprintf("shard-%d.idx", k))
}

// SaveSet writes every shard of a frozen set and then its manifest, so a set
// is only visible once all shards are stored.
func SaveSet(ctx context.Context, store blobstore.Store, prefix string, set *index.Set, optFns ...func(o *Options)) error {
	opts := buildOptions(optFns)

	m := Manifest{
		Version:     manifestVersion,
		Codec:       opts.Codec.Name(),
		Compression: opts.Compression.String(),
		Shards:      make([]ShardInfo, set.Len()),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Threads)
	for k := range set.Len() {
		g.Go(func() error {
			done, err := opts.Controller.Job(gctx)
			if err != nil {
				return err
			}
			defer done()

			name := ShardName(prefix, k)
			shard := set.Shard(k)
			fp, err := saveIndex(gctx, store, name, shard, opts)
			if err != nil {
				return fmt.Errorf("save shard %d: %w", k, err)
			}
			m.Shards[k] = ShardInfo{Name: path.Base(name), Entries: shard.Len(), Fingerprint: fp}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	data, err := opts.Codec.Marshal(&m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := store.Put(ctx, path.Join(prefix, ManifestName), data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	opts.Logger.Info("saved index set", "prefix", prefix, "shards", set.Len())
	return nil
}

// ReadManifest reads the manifest of the set saved under prefix.
func ReadManifest(ctx context.Context, store blobstore.Store, prefix string) (*Manifest, error) {
	data, err := blobstore.ReadAll(ctx, store, path.Join(prefix, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	// Every built-in codec writes plain JSON, so the header fields can be read
	// before the recorded codec is known.
	var m Manifest
	if err := codec.Default.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode manifest: %w", ErrCorrupt, err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("%w: manifest version %d", ErrIncompatibleFormat, m.Version)
	}
	if _, ok := codec.ByName(m.Codec); !ok {
		return nil, fmt.Errorf("%w: manifest codec %q", ErrIncompatibleFormat, m.Codec)
	}
	return &m, nil
}

// LoadSet reads a set written by SaveSet. Shards are loaded concurrently and
// each is checked against the fingerprint in the manifest.
func LoadSet(ctx context.Context, store blobstore.Store, prefix string, optFns ...func(o *Options)) (*index.Set, error) {
	opts := buildOptions(optFns)

	m, err := ReadManifest(ctx, store, prefix)
	if err != nil {
		return nil, err
	}

	shards := make([]*index.Index, len(m.Shards))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Threads)
	for k, info := range m.Shards {
		g.Go(func() error {
			done, err := opts.Controller.Job(gctx)
			if err != nil {
				return err
			}
			defer done()

			name := path.Join(prefix, info.Name)
			ix, fp, err := loadIndex(gctx, store, name, opts)
			if err != nil {
				return fmt.Errorf("load shard %d: %w", k, err)
			}
			if fp != info.Fingerprint {
				return &FingerprintMismatchError{Name: name, Expected: info.Fingerprint, Actual: fp}
			}
			if ix.Len() != info.Entries {
				return fmt.Errorf("%w: %s: %d entries, manifest records %d", ErrCorrupt, name, ix.Len(), info.Entries)
			}
			shards[k] = ix
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	opts.Logger.Info("loaded index set", "prefix", prefix, "shards", len(shards))
	return index.SetOf(opts.Logger, shards...), nil
}
