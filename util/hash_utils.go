package util

import (
	"encoding/binary"

	"github.com/OneOfOne/xxhash"
)

// 将一个键进行Hash
func HashCode(key []byte) uint64 {
	h := xxhash.New64()
	h.Write(key)
	return h.Sum64()
}

// BlockHash 计算磁盘块号落到哪个哈希桶
func BlockHash(blockno uint32, nbucket int) int {
	var key [4]byte
	binary.LittleEndian.PutUint32(key[:], blockno)
	return int(HashCode(key[:]) % uint64(nbucket))
}
