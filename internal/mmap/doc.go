// Package mmap maps stored index frames into memory read-only.
//
// LocalStore opens blobs through Map, so loading a shard reads the file
// through the page cache once instead of through an extra read buffer:
//
//	m, err := mmap.Map("sets/hg38/shard-0.idx")
//	if err != nil { ... }
//	defer m.Close()
//
//	frame := m.Bytes()
//
// Other platforms than Unix read the file into memory behind the same API.
package mmap
