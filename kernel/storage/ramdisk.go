package storage

import (
	"sync"

	"github.com/pkg/errors"
)

// RAMDisk 内存模拟的块设备，按(dev, blockno)存放块内容
// 实现basic.BlockDevice，供缓冲区缓存做底层搬运
type RAMDisk struct {
	mu        sync.RWMutex
	blockSize int
	devices   map[uint32]map[uint32][]byte
}

func NewRAMDisk(blockSize int) *RAMDisk {
	return &RAMDisk{
		blockSize: blockSize,
		devices:   make(map[uint32]map[uint32][]byte),
	}
}

// Transfer 同步搬运一个块；读未写过的块得到全零内容
func (d *RAMDisk) Transfer(dev uint32, blockno uint32, data []byte, write bool) error {
	if len(data) != d.blockSize {
		return errors.Errorf("transfer dev %d block %d: payload %d bytes, block size %d",
			dev, blockno, len(data), d.blockSize)
	}

	if write {
		d.mu.Lock()
		defer d.mu.Unlock()

		blocks, ok := d.devices[dev]
		if !ok {
			blocks = make(map[uint32][]byte)
			d.devices[dev] = blocks
		}
		stored, ok := blocks[blockno]
		if !ok {
			stored = make([]byte, d.blockSize)
			blocks[blockno] = stored
		}
		copy(stored, data)
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	stored, ok := d.devices[dev][blockno]
	if !ok {
		// 从未写过的块读出全零
		for i := range data {
			data[i] = 0
		}
		return nil
	}
	copy(data, stored)
	return nil
}

// BlockSize 设备块大小
func (d *RAMDisk) BlockSize() int {
	return d.blockSize
}
