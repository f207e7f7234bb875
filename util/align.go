package util

// PageRoundDown 将地址向下对齐到页面边界
func PageRoundDown(addr uint64, pageSize uint64) uint64 {
	return addr &^ (pageSize - 1)
}

// PageRoundUp 将地址向上对齐到页面边界
func PageRoundUp(addr uint64, pageSize uint64) uint64 {
	return (addr + pageSize - 1) &^ (pageSize - 1)
}

// IsPageAligned 地址是否落在页面边界上
func IsPageAligned(addr uint64, pageSize uint64) bool {
	return addr%pageSize == 0
}
