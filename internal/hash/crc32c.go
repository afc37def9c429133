package hash

import "hash/crc32"

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the CRC32-Castagnoli checksum of an index frame payload.
func CRC32C(payload []byte) uint32 {
	return crc32.Checksum(payload, castagnoli)
}
