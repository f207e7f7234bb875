package main

import (
	"fmt"
	"sync"

	"github.com/zhukovaskychina/xkernel-mm/kernel/basic"
	"github.com/zhukovaskychina/xkernel-mm/kernel/buffer"
	"github.com/zhukovaskychina/xkernel-mm/kernel/common"
	"github.com/zhukovaskychina/xkernel-mm/kernel/mm"
	"github.com/zhukovaskychina/xkernel-mm/kernel/storage"
)

func main() {
	fmt.Println("=== XKernel Memory Core Demo ===")

	fmt.Println("\n1. Testing buffer cache basics...")
	testBufferCacheBasics()

	fmt.Println("\n2. Testing concurrent buffer access...")
	testConcurrentBufferAccess()

	fmt.Println("\n3. Testing LRU eviction...")
	testEviction()

	fmt.Println("\n4. Testing COW fork...")
	testCowFork()

	fmt.Println("\n=== All demos completed successfully! ===")
}

func newCache(poolSize int) (*buffer.Cache, *storage.RAMDisk) {
	disk := storage.NewRAMDisk(common.BLOCK_SIZE)
	cache := buffer.NewCache(&buffer.CacheConfig{
		PoolSize:    poolSize,
		BucketCount: common.NBUCKET,
		BlockSize:   common.BLOCK_SIZE,
		Device:      disk,
		Clock:       basic.NewTickClock(),
		Halter:      basic.NewPanicHalter(),
	})
	return cache, disk
}

func testBufferCacheBasics() {
	cache, _ := newCache(common.NBUF)

	b, err := cache.Read(1, 7)
	if err != nil {
		fmt.Printf("ERROR: read failed: %v\n", err)
		return
	}
	copy(b.GetData(), []byte("hello block 7"))
	if err := cache.Write(b); err != nil {
		fmt.Printf("ERROR: write failed: %v\n", err)
		cache.Release(b)
		return
	}
	cache.Release(b)

	// 再读应当命中缓存
	b, err = cache.Read(1, 7)
	if err != nil {
		fmt.Printf("ERROR: reread failed: %v\n", err)
		return
	}
	fmt.Printf("   block 7 content: %q\n", string(b.GetData()[:13]))
	cache.Release(b)

	stats := cache.GetStats()
	fmt.Printf("   hits=%d misses=%d hit rate=%.2f\n", stats["hits"], stats["misses"], cache.GetHitRate())
}

func testConcurrentBufferAccess() {
	cache, _ := newCache(common.NBUF)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				blockno := uint32(j % 10)
				b, err := cache.Read(1, blockno)
				if err != nil {
					fmt.Printf("ERROR: goroutine %d: %v\n", id, err)
					return
				}
				b.GetData()[0] = byte(id)
				cache.Release(b)
			}
		}(i)
	}
	wg.Wait()

	stats := cache.GetStats()
	fmt.Printf("   400 reads done: hits=%d misses=%d\n", stats["hits"], stats["misses"])
}

func testEviction() {
	// 池子只有3个缓冲区，读4个不同的块必然发生逐出
	cache, _ := newCache(3)

	for blockno := uint32(0); blockno < 4; blockno++ {
		b, err := cache.Read(1, blockno)
		if err != nil {
			fmt.Printf("ERROR: read block %d: %v\n", blockno, err)
			return
		}
		cache.Release(b)
	}

	stats := cache.GetStats()
	fmt.Printf("   4 blocks through 3 buffers: evictions=%d\n", stats["evictions"])
}

func testCowFork() {
	alloc := mm.NewAllocator(&mm.AllocatorConfig{
		PhysBase: common.KERNBASE,
		PhysTop:  common.KERNBASE + 64*common.PAGE_SIZE,
	})
	cow := mm.NewCowManager(alloc)

	parent := mm.NewPageTable()
	pa, err := alloc.Alloc()
	if err != nil {
		fmt.Printf("ERROR: alloc failed: %v\n", err)
		return
	}
	copy(alloc.PageBytes(pa), []byte("shared page"))
	if err := parent.Map(0x4000, 1, pa, common.PTE_R|common.PTE_W|common.PTE_U); err != nil {
		fmt.Printf("ERROR: map failed: %v\n", err)
		return
	}

	child := mm.NewPageTable()
	if err := cow.ForkShare(parent, child); err != nil {
		fmt.Printf("ERROR: fork share failed: %v\n", err)
		return
	}
	fmt.Printf("   after fork: refcount=%d cow fault pending=%v\n",
		alloc.RefCount(pa), cow.IsCowFault(child, 0x4000))

	newpa, err := cow.ResolveCowFault(child, 0x4000)
	if err != nil {
		fmt.Printf("ERROR: resolve cow fault: %v\n", err)
		return
	}
	fmt.Printf("   child got private page %#x (parent keeps %#x), refcount=%d\n",
		newpa, pa, alloc.RefCount(pa))
}
