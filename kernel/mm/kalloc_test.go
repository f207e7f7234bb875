package mm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xkernel-mm/kernel/common"
)

// testHalter 以格式化消息panic，测试里用recover捕获
type testHalter struct{}

func (h *testHalter) Haltf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

func newTestAllocator(pages int) *Allocator {
	return NewAllocator(&AllocatorConfig{
		PhysBase: common.KERNBASE,
		PhysTop:  common.KERNBASE + uint64(pages)*common.PAGE_SIZE,
		Halter:   &testHalter{},
	})
}

func TestPageAllocator(t *testing.T) {
	t.Run("初始化灌满空闲链", func(t *testing.T) {
		a := newTestAllocator(16)
		assert.Equal(t, 16, a.FreePages())
	})

	t.Run("分配页面对齐且填充哨兵", func(t *testing.T) {
		a := newTestAllocator(4)

		pa, err := a.Alloc()
		require.NoError(t, err)
		assert.Zero(t, pa%common.PAGE_SIZE)
		assert.Equal(t, 1, a.RefCount(pa))
		assert.Equal(t, 3, a.FreePages())

		for _, c := range a.PageBytes(pa) {
			require.Equal(t, byte(common.ALLOC_JUNK), c)
		}
	})

	t.Run("空闲链耗尽返回可恢复错误", func(t *testing.T) {
		a := newTestAllocator(2)

		_, err := a.Alloc()
		require.NoError(t, err)
		_, err = a.Alloc()
		require.NoError(t, err)

		_, err = a.Alloc()
		require.Error(t, err)
		assert.True(t, IsOutOfMemory(err))
	})

	t.Run("场景C_多持有者下的释放", func(t *testing.T) {
		a := newTestAllocator(4)

		pa, err := a.Alloc()
		require.NoError(t, err)
		require.NoError(t, a.AddRef(pa))
		assert.Equal(t, 2, a.RefCount(pa))

		freeBefore := a.FreePages()
		copy(a.PageBytes(pa), []byte("still shared"))

		// 第一次释放只递减计数，页面不回链、内容不动
		a.Free(pa)
		assert.Equal(t, 1, a.RefCount(pa))
		assert.Equal(t, freeBefore, a.FreePages())
		assert.Equal(t, []byte("still shared"), a.PageBytes(pa)[:12])

		// 第二次释放归零：擦除并回链
		a.Free(pa)
		assert.Equal(t, freeBefore+1, a.FreePages())
		for _, c := range a.pageBytes(pa) {
			require.Equal(t, byte(common.FREE_JUNK), c)
		}
	})

	t.Run("场景D_非法地址的致命与可恢复之分", func(t *testing.T) {
		a := newTestAllocator(4)
		misaligned := uint64(common.KERNBASE) + 123

		// 同一个地址：释放是编程错误直接停机，探测性加引用只报错
		assert.Panics(t, func() {
			a.Free(misaligned)
		})
		err := a.AddRef(misaligned)
		require.Error(t, err)
		assert.True(t, IsBadAddress(err))

		outOfRange := uint64(common.KERNBASE) + 64*common.PAGE_SIZE
		assert.Panics(t, func() {
			a.Free(outOfRange)
		})
		assert.True(t, IsBadAddress(a.AddRef(outOfRange)))
	})

	t.Run("引用计数不会变负", func(t *testing.T) {
		a := newTestAllocator(4)

		pa, err := a.Alloc()
		require.NoError(t, err)
		a.Free(pa)

		// 计数已经归零，再释放是致命错误
		assert.Panics(t, func() {
			a.Free(pa)
		})
	})

	t.Run("回收后可再次分配", func(t *testing.T) {
		a := newTestAllocator(1)

		pa, err := a.Alloc()
		require.NoError(t, err)
		a.Free(pa)

		pa2, err := a.Alloc()
		require.NoError(t, err)
		assert.Equal(t, pa, pa2)
	})
}
