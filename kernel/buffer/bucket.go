package buffer

import "sync"

// bucket 哈希桶，桶内无序，靠swap-remove保证O(1)摘除
type bucket struct {
	mu   sync.Mutex
	bufs []*Buffer
}

func (bkt *bucket) find(dev uint32, blockno uint32) *Buffer {
	for _, b := range bkt.bufs {
		if b.dev == dev && b.blockno == blockno {
			return b
		}
	}
	return nil
}

func (bkt *bucket) add(b *Buffer) {
	bkt.bufs = append(bkt.bufs, b)
}

func (bkt *bucket) remove(b *Buffer) {
	for i, cur := range bkt.bufs {
		if cur == b {
			last := len(bkt.bufs) - 1
			bkt.bufs[i] = bkt.bufs[last]
			bkt.bufs[last] = nil
			bkt.bufs = bkt.bufs[:last]
			return
		}
	}
}
