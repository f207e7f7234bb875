package buffer

// Buffer 一个缓存槽位，保存某个磁盘块的内存副本和缓存管理元数据
//
// dev/blockno/valid/data 由持有lock的线程独占访问；
// refcnt/timestamp 只在所属桶的锁下读写。
// Buffer从不销毁，只会被改派去承载别的磁盘块。
type Buffer struct {
	dev     uint32
	blockno uint32
	valid   bool

	refcnt    uint32
	timestamp uint64 // 引用计数归零时的逻辑时钟，逐出时比较新旧

	lock *sleepLock
	data []byte
}

// GetDev 获取设备号
func (b *Buffer) GetDev() uint32 {
	return b.dev
}

// GetBlockNo 获取块号
func (b *Buffer) GetBlockNo() uint32 {
	return b.blockno
}

// GetData 获取块内容，调用方必须持有该缓冲区的访问锁
func (b *Buffer) GetData() []byte {
	return b.data
}

// IsValid 内容是否已经从磁盘装载
func (b *Buffer) IsValid() bool {
	return b.valid
}
