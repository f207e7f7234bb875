package basic

// BlockDevice 块设备接口，同步搬运一个磁盘块的内容
// 读方向把设备内容拷贝进data，写方向把data持久化到设备
type BlockDevice interface {
	Transfer(dev uint32, blockno uint32, data []byte, write bool) error
}

// Clock 逻辑时钟接口，单调递增，用于缓冲区的LRU时间戳
type Clock interface {
	Ticks() uint64
}

// Halter 致命错误处理接口
// Haltf永不返回，用于不变量被破坏时立即停机
type Halter interface {
	Haltf(format string, args ...interface{})
}

// PageTable 页表接口
// Walk查找虚拟地址对应的页表项，找不到返回false
// Map建立一段虚拟地址到物理页面的映射
type PageTable interface {
	Walk(va uint64) (*PTE, bool)
	Map(va uint64, size uint64, pa uint64, flags uint64) error
}
