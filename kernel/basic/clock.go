package basic

import "sync/atomic"

// TickClock 基于原子计数器的逻辑时钟，内核tick的等价物
// 每次读取自增一，保证任意两次释放事件拿到的时间戳可比较
type TickClock struct {
	ticks uint64
}

func NewTickClock() *TickClock {
	return &TickClock{}
}

func (c *TickClock) Ticks() uint64 {
	return atomic.AddUint64(&c.ticks, 1)
}
