package buffer

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/zhukovaskychina/xkernel-mm/kernel/basic"
	"github.com/zhukovaskychina/xkernel-mm/kernel/common"
	"github.com/zhukovaskychina/xkernel-mm/logger"
	"github.com/zhukovaskychina/xkernel-mm/util"
)

// CacheConfig contains configuration for the buffer cache
type CacheConfig struct {
	PoolSize    int
	BucketCount int
	BlockSize   int

	Device basic.BlockDevice
	Clock  basic.Clock
	Halter basic.Halter
}

// Cache 磁盘块缓冲区缓存
//
// 固定大小的Buffer池按块号哈希散列到多个桶上，每个桶一把锁；
// 池子用满之后由一把全局逐出锁串行化victim挑选，
// 防止两个核心同时改派同一个缓冲区。
type Cache struct {
	device basic.BlockDevice
	clock  basic.Clock
	halter basic.Halter

	// 池大小锁，保护used
	mu   sync.Mutex
	pool []Buffer
	used int

	buckets []bucket

	// 全局逐出锁，池满时串行化所有victim扫描
	evictMu sync.Mutex

	stats stats
}

// NewCache creates a new buffer cache
func NewCache(config *CacheConfig) *Cache {
	poolSize := config.PoolSize
	if poolSize <= 0 {
		poolSize = common.NBUF
	}
	bucketCount := config.BucketCount
	if bucketCount <= 0 {
		bucketCount = common.NBUCKET
	}
	blockSize := config.BlockSize
	if blockSize <= 0 {
		blockSize = common.BLOCK_SIZE
	}

	c := &Cache{
		device:  config.Device,
		clock:   config.Clock,
		halter:  config.Halter,
		pool:    make([]Buffer, poolSize),
		buckets: make([]bucket, bucketCount),
	}
	if c.clock == nil {
		c.clock = basic.NewTickClock()
	}
	if c.halter == nil {
		c.halter = basic.NewPanicHalter()
	}

	for i := range c.pool {
		c.pool[i].lock = newSleepLock()
		c.pool[i].data = make([]byte, blockSize)
	}

	logger.Debugf("buffer cache initialized: %d buffers, %d buckets, block size %d\n",
		poolSize, bucketCount, blockSize)
	return c
}

func (c *Cache) bucketIndex(blockno uint32) int {
	return util.BlockHash(blockno, len(c.buckets))
}

// Acquire 查找(dev, blockno)对应的缓冲区，没有则分配一个
// 返回时调用方已持有该缓冲区的访问锁
func (c *Cache) Acquire(dev uint32, blockno uint32) *Buffer {
	idx := c.bucketIndex(blockno)
	bkt := &c.buckets[idx]

	bkt.mu.Lock()

	if b := bkt.find(dev, blockno); b != nil {
		b.refcnt++
		c.stats.IncrHitCount()
		bkt.mu.Unlock()
		b.lock.acquire()
		return b
	}
	c.stats.IncrMissCount()

	// 快速路径：池里还有没用过的槽位
	c.mu.Lock()
	if c.used < len(c.pool) {
		b := &c.pool[c.used]
		c.used++
		c.mu.Unlock()

		b.dev = dev
		b.blockno = blockno
		b.valid = false
		b.refcnt = 1
		bkt.add(b)
		bkt.mu.Unlock()
		b.lock.acquire()
		return b
	}
	c.mu.Unlock()
	bkt.mu.Unlock()

	return c.recycle(dev, blockno, idx)
}

// recycle 池满时从全体桶中挑选并改派一个无人引用的缓冲区
// 持有evictMu期间每次只锁一个桶，释放后才锁下一个
func (c *Cache) recycle(dev uint32, blockno uint32, target int) *Buffer {
	c.evictMu.Lock()

	for {
		var victim *Buffer
		var victimIdx int
		var minStamp uint64
		found := false

		// 从目标桶开始轮转扫一整圈，全程跟踪时间戳最小的候选，
		// 时间戳相同时先遇到的胜出
		idx := target
		for i := 0; i < len(c.buckets); i++ {
			bkt := &c.buckets[idx]
			bkt.mu.Lock()
			for _, b := range bkt.bufs {
				// 别的线程可能抢先插入了同一个块，扫到目标桶时重查
				if idx == target && b.dev == dev && b.blockno == blockno {
					b.refcnt++
					bkt.mu.Unlock()
					c.evictMu.Unlock()
					b.lock.acquire()
					return b
				}
				if b.refcnt == 0 && (!found || b.timestamp < minStamp) {
					victim = b
					victimIdx = idx
					minStamp = b.timestamp
					found = true
				}
			}
			bkt.mu.Unlock()

			if idx++; idx == len(c.buckets) {
				idx = 0
			}
		}

		if !found {
			c.evictMu.Unlock()
			c.halter.Haltf("bget: no buffers")
			return nil
		}

		// 重新拿住候选所在桶，确认扫描之后没有人又引用了它
		bkt := &c.buckets[victimIdx]
		bkt.mu.Lock()
		if victim.refcnt != 0 {
			bkt.mu.Unlock()
			continue
		}

		logger.Debugf("bcache recycle: dev %d block %d takes over buffer of dev %d block %d (stamp %d)\n",
			dev, blockno, victim.dev, victim.blockno, victim.timestamp)

		victim.dev = dev
		victim.blockno = blockno
		victim.valid = false
		victim.refcnt = 1

		// 候选挂在别的桶下时迁移到目标桶
		if victimIdx != target {
			bkt.remove(victim)
			bkt.mu.Unlock()

			tb := &c.buckets[target]
			tb.mu.Lock()
			tb.add(victim)
			tb.mu.Unlock()
		} else {
			bkt.mu.Unlock()
		}

		c.stats.IncrEvictCount()
		c.evictMu.Unlock()
		victim.lock.acquire()
		return victim
	}
}

// Read 返回装载好块内容并加锁的缓冲区
// 只有缓存未命中的那一次会触发设备搬运
func (c *Cache) Read(dev uint32, blockno uint32) (*Buffer, error) {
	b := c.Acquire(dev, blockno)
	if !b.valid {
		if err := c.device.Transfer(b.dev, b.blockno, b.data, false); err != nil {
			c.Release(b)
			return nil, errors.Wrapf(err, "read dev %d block %d", dev, blockno)
		}
		b.valid = true
	}
	return b, nil
}

// Write 把缓冲区内容同步写回设备，调用方必须持有访问锁
func (c *Cache) Write(b *Buffer) error {
	if !b.lock.holding() {
		c.halter.Haltf("bwrite: buffer not locked")
		return nil
	}
	if err := c.device.Transfer(b.dev, b.blockno, b.data, true); err != nil {
		return errors.Wrapf(err, "write dev %d block %d", b.dev, b.blockno)
	}
	return nil
}

// Release 释放访问锁并递减引用计数
// 计数归零时盖上当前逻辑时钟，供日后逐出比较新旧；
// 缓冲区在桶里的位置从不移动
func (c *Cache) Release(b *Buffer) {
	if !b.lock.holding() {
		c.halter.Haltf("brelse: buffer not locked")
		return
	}
	b.lock.release()

	bkt := &c.buckets[c.bucketIndex(b.blockno)]
	bkt.mu.Lock()
	b.refcnt--
	if b.refcnt == 0 {
		b.timestamp = c.clock.Ticks()
	}
	bkt.mu.Unlock()
}

// Pin 不碰访问锁，只把引用计数加一
// 写前日志这类调用方靠它让缓冲区跨越多个临界区仍然在缓存里
func (c *Cache) Pin(b *Buffer) {
	bkt := &c.buckets[c.bucketIndex(b.blockno)]
	bkt.mu.Lock()
	b.refcnt++
	bkt.mu.Unlock()
}

// Unpin 撤销Pin加上的引用
func (c *Cache) Unpin(b *Buffer) {
	bkt := &c.buckets[c.bucketIndex(b.blockno)]
	bkt.mu.Lock()
	b.refcnt--
	bkt.mu.Unlock()
}

// Stats methods

// GetHitRate returns the cache hit ratio
func (c *Cache) GetHitRate() float64 {
	return c.stats.HitRate()
}

// GetStats returns cache counters
func (c *Cache) GetStats() map[string]uint64 {
	return map[string]uint64{
		"hits":      c.stats.HitCount(),
		"misses":    c.stats.MissCount(),
		"evictions": c.stats.EvictCount(),
	}
}
