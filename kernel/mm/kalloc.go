package mm

import (
	"sync"

	"github.com/zhukovaskychina/xkernel-mm/kernel/basic"
	"github.com/zhukovaskychina/xkernel-mm/kernel/common"
	"github.com/zhukovaskychina/xkernel-mm/logger"
	"github.com/zhukovaskychina/xkernel-mm/util"
)

// pageRef 每个物理页框一项：引用计数加一把自己的锁
// 计数只在持有该页锁时读写，页面只有在计数被观察到恰好为0时才回收
type pageRef struct {
	mu  sync.Mutex
	cnt int32
}

// AllocatorConfig contains configuration for the page allocator
type AllocatorConfig struct {
	PhysBase uint64
	PhysTop  uint64
	Halter   basic.Halter
}

// Allocator 物理页面分配器
// 管理[base, top)范围的页框，空闲页框号压在一个栈式空闲链上，
// 回收与否由每页的引用计数决定
type Allocator struct {
	base   uint64
	top    uint64
	arena  []byte
	halter basic.Halter

	// 空闲链锁
	mu   sync.Mutex
	free []uint32

	refs []pageRef
}

// NewAllocator creates a page allocator managing [PhysBase, PhysTop)
func NewAllocator(config *AllocatorConfig) *Allocator {
	base := util.PageRoundUp(config.PhysBase, common.PAGE_SIZE)
	top := util.PageRoundDown(config.PhysTop, common.PAGE_SIZE)
	if top <= base {
		top = base
	}
	nframes := int((top - base) / common.PAGE_SIZE)

	a := &Allocator{
		base:   base,
		top:    top,
		arena:  make([]byte, top-base),
		halter: config.Halter,
		free:   make([]uint32, 0, nframes),
		refs:   make([]pageRef, nframes),
	}
	if a.halter == nil {
		a.halter = basic.NewPanicHalter()
	}

	// 每个页框的计数从1起步，整体释放一遍灌满空闲链
	for i := range a.refs {
		a.refs[i].cnt = 1
	}
	a.freeRange(base, top)

	logger.Debugf("page allocator initialized: %d pages in [%#x, %#x)\n", nframes, base, top)
	return a
}

func (a *Allocator) freeRange(start uint64, end uint64) {
	for pa := start; pa+common.PAGE_SIZE <= end; pa += common.PAGE_SIZE {
		a.Free(pa)
	}
}

// checkPA 地址必须按页对齐且落在受管范围内
func (a *Allocator) checkPA(pa uint64) bool {
	return util.IsPageAligned(pa, common.PAGE_SIZE) && pa >= a.base && pa < a.top
}

func (a *Allocator) frameIndex(pa uint64) int {
	return int((pa - a.base) / common.PAGE_SIZE)
}

// Alloc 取出一个物理页面，内容填满ALLOC_JUNK以暴露未初始化使用
// 空闲链耗尽返回ErrOutOfMemory，这是可恢复错误
func (a *Allocator) Alloc() (uint64, error) {
	a.mu.Lock()
	if len(a.free) == 0 {
		a.mu.Unlock()
		return 0, ErrOutOfMemory
	}
	frame := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	a.mu.Unlock()

	pa := a.base + uint64(frame)*common.PAGE_SIZE
	page := a.pageBytes(pa)
	for i := range page {
		page[i] = common.ALLOC_JUNK
	}

	ref := &a.refs[frame]
	ref.mu.Lock()
	ref.cnt = 1
	ref.mu.Unlock()

	return pa, nil
}

// Free 放弃对页面的一份所有权
// 引用计数仍为正时页面留在原处；归零时擦除内容并挂回空闲链。
// 非法地址是编程错误，直接停机
func (a *Allocator) Free(pa uint64) {
	if !a.checkPA(pa) {
		a.halter.Haltf("kfree: bad physical address %#x", pa)
		return
	}

	ref := &a.refs[a.frameIndex(pa)]
	ref.mu.Lock()
	if ref.cnt <= 0 {
		ref.mu.Unlock()
		a.halter.Haltf("kfree: refcount underflow at %#x", pa)
		return
	}
	ref.cnt--
	if ref.cnt > 0 {
		// 还有别的持有者，不回收
		ref.mu.Unlock()
		return
	}
	ref.mu.Unlock()

	page := a.pageBytes(pa)
	for i := range page {
		page[i] = common.FREE_JUNK
	}

	a.mu.Lock()
	a.free = append(a.free, uint32(a.frameIndex(pa)))
	a.mu.Unlock()
}

// AddRef 为页面增加一份引用
// 调用方可能拿任意地址来探测，所以非法地址返回错误而不是停机
func (a *Allocator) AddRef(pa uint64) error {
	if !a.checkPA(pa) {
		return ErrBadAddress
	}
	ref := &a.refs[a.frameIndex(pa)]
	ref.mu.Lock()
	ref.cnt++
	ref.mu.Unlock()
	return nil
}

// RefCount 读取页面当前的引用计数
func (a *Allocator) RefCount(pa uint64) int {
	if !a.checkPA(pa) {
		return 0
	}
	ref := &a.refs[a.frameIndex(pa)]
	ref.mu.Lock()
	defer ref.mu.Unlock()
	return int(ref.cnt)
}

// FreePages 空闲链上当前的页面数
func (a *Allocator) FreePages() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.free)
}

// PageBytes 访问页面的内容，地址非法时停机
func (a *Allocator) PageBytes(pa uint64) []byte {
	if !a.checkPA(pa) {
		a.halter.Haltf("page access: bad physical address %#x", pa)
		return nil
	}
	return a.pageBytes(pa)
}

func (a *Allocator) pageBytes(pa uint64) []byte {
	off := pa - a.base
	return a.arena[off : off+common.PAGE_SIZE]
}
