package mm

import (
	"github.com/zhukovaskychina/xkernel-mm/kernel/basic"
	"github.com/zhukovaskychina/xkernel-mm/kernel/common"
	"github.com/zhukovaskychina/xkernel-mm/util"
)

// PageTable 单级页表，虚拟页号直接散列到页表项
// 实现basic.PageTable。页表属于单个进程，缺页处理
// 在进程上下文里逐个进行，这里不需要自己的锁
type PageTable struct {
	entries map[uint64]*basic.PTE
}

func NewPageTable() *PageTable {
	return &PageTable{
		entries: make(map[uint64]*basic.PTE),
	}
}

// Walk 查找虚拟地址所在页面的页表项
func (pt *PageTable) Walk(va uint64) (*basic.PTE, bool) {
	if va >= common.MAXVA {
		return nil, false
	}
	pte, ok := pt.entries[util.PageRoundDown(va, common.PAGE_SIZE)]
	return pte, ok
}

// Map 建立[va, va+size)到物理页面的映射
// 已存在有效页表项时返回ErrRemap；有效位由这里统一补上
func (pt *PageTable) Map(va uint64, size uint64, pa uint64, flags uint64) error {
	if size == 0 {
		return ErrInvalidRange
	}

	start := util.PageRoundDown(va, common.PAGE_SIZE)
	end := util.PageRoundUp(va+size, common.PAGE_SIZE)
	if end > common.MAXVA {
		return ErrInvalidRange
	}

	off := uint64(0)
	for v := start; v < end; v += common.PAGE_SIZE {
		if old, ok := pt.entries[v]; ok && old.IsValid() {
			return ErrRemap
		}
		pte := basic.NewPTE(pa+off, flags|common.PTE_V)
		pt.entries[v] = &pte
		off += common.PAGE_SIZE
	}
	return nil
}

// Pages 按页面遍历全部页表项
func (pt *PageTable) Pages(fn func(va uint64, pte *basic.PTE) error) error {
	for va, pte := range pt.entries {
		if err := fn(va, pte); err != nil {
			return err
		}
	}
	return nil
}
