package basic

import (
	"github.com/zhukovaskychina/xkernel-mm/kernel/common"
)

// PTE 页表项，采用Sv39布局：低10位是标志位，物理页号从第10位开始
type PTE uint64

// NewPTE 由物理地址和标志位组装页表项
func NewPTE(pa uint64, flags uint64) PTE {
	return PTE((pa>>12)<<common.PTE_PFN_SHIFT | flags)
}

// PhysAddr 取出页表项指向的物理页面首地址
func (p PTE) PhysAddr() uint64 {
	return (uint64(p) >> common.PTE_PFN_SHIFT) << 12
}

// Flags 取出全部标志位
func (p PTE) Flags() uint64 {
	return uint64(p) & ((1 << common.PTE_PFN_SHIFT) - 1)
}

// IsValid 有效位
func (p PTE) IsValid() bool {
	return uint64(p)&common.PTE_V != 0
}

// IsWritable 可写位
func (p PTE) IsWritable() bool {
	return uint64(p)&common.PTE_W != 0
}

// IsCow copy-on-write标记位
func (p PTE) IsCow() bool {
	return uint64(p)&common.PTE_COW != 0
}

// Set 置位
func (p *PTE) Set(flags uint64) {
	*p = PTE(uint64(*p) | flags)
}

// Clear 清位
func (p *PTE) Clear(flags uint64) {
	*p = PTE(uint64(*p) &^ flags)
}
