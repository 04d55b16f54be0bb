package util

import (
	"github.com/OneOfOne/xxhash"
)

// Checksum32 WAL记录体校验和
func Checksum32(data []byte) uint32 {
	return xxhash.Checksum32(data)
}
