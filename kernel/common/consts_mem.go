package common

// 物理页面大小，固定4KB
const PAGE_SIZE = 4096

// 磁盘块大小
const BLOCK_SIZE = 1024

// 缓冲池默认容量
const NBUF = 30

// 哈希桶数量，取素数减少冲突
const NBUCKET = 13

// 物理内存默认布局
const KERNBASE = 0x80000000
const DEFAULT_PHYS_PAGES = 1024

// 最大虚拟地址，Sv39下去掉最高位避免符号扩展
const MAXVA = 1 << (9 + 9 + 9 + 12 - 1)

// 页表项标志位
const (
	PTE_V   = 1 << 0 // 有效位
	PTE_R   = 1 << 1
	PTE_W   = 1 << 2
	PTE_X   = 1 << 3
	PTE_U   = 1 << 4
	PTE_COW = 1 << 8 // copy-on-write标记位
)

// 页表项中物理页号的偏移
const PTE_PFN_SHIFT = 10

// 页面填充字节：新分配页面填充ALLOC_JUNK，回收页面填充FREE_JUNK，
// 用来暴露use-after-free
const (
	ALLOC_JUNK = 0x05
	FREE_JUNK  = 0x01
)
