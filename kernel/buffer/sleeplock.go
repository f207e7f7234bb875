package buffer

import "sync"

// sleepLock 缓冲区的长期持有锁
// 拿不到锁的线程挂起等待而不是自旋，持有期间可以跨越磁盘IO
type sleepLock struct {
	mu     sync.Mutex
	cond   *sync.Cond
	locked bool
}

func newSleepLock() *sleepLock {
	l := &sleepLock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *sleepLock) acquire() {
	l.mu.Lock()
	for l.locked {
		l.cond.Wait()
	}
	l.locked = true
	l.mu.Unlock()
}

func (l *sleepLock) release() {
	l.mu.Lock()
	l.locked = false
	l.cond.Signal()
	l.mu.Unlock()
}

// holding 锁当前是否被持有
func (l *sleepLock) holding() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locked
}
