package persistence

import (
	"log/slog"

	"github.com/hupe1980/kmerindex/codec"
	"github.com/hupe1980/kmerindex/internal/compress"
	"github.com/hupe1980/kmerindex/internal/resource"
)

// Options contains configuration options for saving and loading.
type Options struct {
	// Compression is the block codec for index payloads. Loading ignores it;
	// frames record their own codec.
	Compression compress.Codec

	// Codec encodes set manifests.
	Codec codec.Codec

	// Threads bounds the shards saved or loaded concurrently.
	Threads int

	// Controller rate-limits writes and bounds workers. nil imposes no limits.
	Controller *resource.Controller

	// Logger receives diagnostics. nil discards them.
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	Compression: compress.LZ4,
	Threads:     1,
}

// WithCompression sets the block codec for index payloads.
func WithCompression(c compress.Codec) func(o *Options) {
	return func(o *Options) { o.Compression = c }
}

// WithCodec sets the manifest codec.
func WithCodec(c codec.Codec) func(o *Options) {
	return func(o *Options) { o.Codec = c }
}

// WithThreads sets the number of concurrent shard jobs.
func WithThreads(n int) func(o *Options) {
	return func(o *Options) { o.Threads = n }
}

// WithController sets the resource controller.
func WithController(c *resource.Controller) func(o *Options) {
	return func(o *Options) { o.Controller = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

func buildOptions(optFns []func(o *Options)) Options {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.Threads < 1 {
		opts.Threads = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return opts
}
