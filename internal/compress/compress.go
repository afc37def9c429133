// Package compress provides the block codecs used for persisted indexes.
package compress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies a block compression algorithm. The values are persisted.
type Codec uint8

const (
	// None stores blocks as they are.
	None Codec = 0
	// LZ4 is fast block compression, good for indexes loaded often.
	LZ4 Codec = 1
	// ZSTD compresses better, good for archived indexes.
	ZSTD Codec = 2
)

var (
	// ErrUnknownCodec is returned for a codec byte or name that is not defined.
	ErrUnknownCodec = errors.New("unknown compression codec")

	// ErrSizeMismatch is returned when a block does not decode to its recorded size.
	ErrSizeMismatch = errors.New("decompressed size mismatch")
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// Valid reports whether c is a defined codec.
func (c Codec) Valid() bool { return c <= ZSTD }

// Parse returns the codec with the given name.
func Parse(name string) (Codec, error) {
	for _, c := range []Codec{None, LZ4, ZSTD} {
		if c.String() == name {
			return c, nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Block compresses data with c. It returns the codec actually used: None when
// c is None or compression saves less than 10%, in which case data is
// returned unchanged.
func Block(data []byte, c Codec) ([]byte, Codec, error) {
	if c == None || len(data) == 0 {
		return data, None, nil
	}

	var out []byte
	switch c {
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, None, err
		}
		out = buf[:n]
	case ZSTD:
		enc := getZstdEncoder()
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, None, fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(c))
	}

	// n == 0 from lz4 means incompressible.
	if len(out) == 0 || float64(len(out)) > float64(len(data))*0.9 {
		return data, None, nil
	}
	return out, c, nil
}

// Unblock reverses Block. size is the length of the original data.
func Unblock(data []byte, c Codec, size int) ([]byte, error) {
	switch c {
	case None:
		if len(data) != size {
			return nil, fmt.Errorf("%w: stored %d bytes, want %d", ErrSizeMismatch, len(data), size)
		}
		return data, nil
	case LZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, err
		}
		if n != size {
			return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, n, size)
		}
		return out, nil
	case ZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, err
		}
		if len(out) != size {
			return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(out), size)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(c))
	}
}
