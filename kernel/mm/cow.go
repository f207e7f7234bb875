package mm

import (
	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xkernel-mm/kernel/basic"
	"github.com/zhukovaskychina/xkernel-mm/kernel/common"
	"github.com/zhukovaskychina/xkernel-mm/util"
)

// CowManager copy-on-write缺页处理
//
// 写一个COW保护的页面时：唯一持有者原地升级成可写，
// 否则复制到新页面并撤掉自己对旧页面的引用。
// 分配失败原样上抛，由外层trap处理决定杀掉出错进程。
type CowManager struct {
	alloc *Allocator
}

func NewCowManager(alloc *Allocator) *CowManager {
	return &CowManager{alloc: alloc}
}

// IsCowFault 判断该虚拟地址上的缺页是不是COW写故障
func (cm *CowManager) IsCowFault(pt basic.PageTable, va uint64) bool {
	if va >= common.MAXVA {
		return false
	}
	pte, ok := pt.Walk(va)
	if !ok {
		return false
	}
	if !pte.IsValid() {
		return false
	}
	return pte.IsCow()
}

// ResolveCowFault 处理COW写故障，返回此后该虚拟页面映射到的物理页面
func (cm *CowManager) ResolveCowFault(pt basic.PageTable, va uint64) (uint64, error) {
	va = util.PageRoundDown(va, common.PAGE_SIZE)
	pte, ok := pt.Walk(va)
	if !ok || !pte.IsValid() {
		return 0, jerrors.Annotatef(ErrBadAddress, "no valid mapping at va %#x", va)
	}
	pa := pte.PhysAddr()
	if !cm.alloc.checkPA(pa) {
		return 0, jerrors.Annotatef(ErrBadAddress, "pte at va %#x points outside managed memory", va)
	}

	ref := &cm.alloc.refs[cm.alloc.frameIndex(pa)]
	ref.mu.Lock()
	if ref.cnt == 1 {
		// 唯一持有者，原地取得写权限，无需复制
		pte.Clear(common.PTE_COW)
		pte.Set(common.PTE_W)
		ref.mu.Unlock()
		return pa, nil
	}
	// 进分配器之前必须放掉页锁，Alloc内部还要拿页锁
	ref.mu.Unlock()

	newpa, err := cm.alloc.Alloc()
	if err != nil {
		return 0, jerrors.Trace(err)
	}

	copy(cm.alloc.pageBytes(newpa), cm.alloc.pageBytes(pa))

	// 先失效旧页表项，避免瞬时双重映射
	pte.Clear(common.PTE_V)
	flags := (pte.Flags() | common.PTE_W) &^ common.PTE_COW

	if err := pt.Map(va, common.PAGE_SIZE, newpa, flags); err != nil {
		cm.alloc.Free(newpa)
		return 0, jerrors.Annotatef(err, "install cow copy at va %#x", va)
	}

	// 撤掉对旧页面的引用，最后一个持有者离开时它会被真正回收
	cm.alloc.Free(pa)

	return newpa, nil
}

// ForkShare 把parent的全部映射以copy-on-write方式共享给child
// 可写页面两边都降级为只读加COW标记，物理页面引用计数加一
func (cm *CowManager) ForkShare(parent *PageTable, child *PageTable) error {
	return parent.Pages(func(va uint64, pte *basic.PTE) error {
		if !pte.IsValid() {
			return nil
		}
		pa := pte.PhysAddr()

		if pte.IsWritable() {
			pte.Clear(common.PTE_W)
			pte.Set(common.PTE_COW)
		}
		flags := pte.Flags()

		if err := cm.alloc.AddRef(pa); err != nil {
			return jerrors.Annotatef(err, "share page at va %#x", va)
		}
		if err := child.Map(va, common.PAGE_SIZE, pa, flags); err != nil {
			cm.alloc.Free(pa)
			return jerrors.Trace(err)
		}
		return nil
	})
}
