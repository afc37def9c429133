package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/kmerindex/internal/compress"
)

const (
	// MagicNumber identifies index frames (ASCII: "KMIF").
	MagicNumber uint32 = 0x46494d4b
	// Version is the current frame format version.
	Version uint16 = 1

	headerSize = 20
)

var (
	// ErrCorrupt is returned when stored bytes fail verification.
	ErrCorrupt = errors.New("corrupt index data")

	// ErrIncompatibleFormat is returned for blobs that are not index frames or
	// were written by an unsupported version.
	ErrIncompatibleFormat = errors.New("incompatible index format")
)

// frameHeader is the fixed-size prefix of every index frame.
type frameHeader struct {
	Magic    uint32
	Version  uint16
	Codec    compress.Codec
	Size     uint64 // uncompressed payload length
	Checksum uint32 // CRC32C of the stored payload
}

func (h frameHeader) marshal() []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:], h.Version)
	buf[6] = byte(h.Codec)
	binary.LittleEndian.PutUint64(buf[8:], h.Size)
	binary.LittleEndian.PutUint32(buf[16:], h.Checksum)
	return buf
}

func parseHeader(data []byte) (frameHeader, error) {
	if len(data) < headerSize {
		return frameHeader{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrIncompatibleFormat, len(data))
	}
	h := frameHeader{
		Magic:    binary.LittleEndian.Uint32(data[0:]),
		Version:  binary.LittleEndian.Uint16(data[4:]),
		Codec:    compress.Codec(data[6]),
		Size:     binary.LittleEndian.Uint64(data[8:]),
		Checksum: binary.LittleEndian.Uint32(data[16:]),
	}
	switch {
	case h.Magic != MagicNumber:
		return h, fmt.Errorf("%w: magic 0x%08x", ErrIncompatibleFormat, h.Magic)
	case h.Version != Version:
		return h, fmt.Errorf("%w: version %d", ErrIncompatibleFormat, h.Version)
	case !h.Codec.Valid():
		return h, fmt.Errorf("%w: %s", ErrIncompatibleFormat, h.Codec)
	}
	return h, nil
}
