package mm

import (
	"testing"

	jerrors "github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xkernel-mm/kernel/basic"
	"github.com/zhukovaskychina/xkernel-mm/kernel/common"
)

// failingMapTable 包装真实页表但Map总是失败，用来测故障回滚
type failingMapTable struct {
	*PageTable
}

func (t *failingMapTable) Map(va uint64, size uint64, pa uint64, flags uint64) error {
	return ErrRemap
}

func setupCow(t *testing.T, pages int) (*Allocator, *CowManager, *PageTable, uint64) {
	t.Helper()
	a := newTestAllocator(pages)
	cm := NewCowManager(a)

	pt := NewPageTable()
	pa, err := a.Alloc()
	require.NoError(t, err)
	copy(a.PageBytes(pa), []byte("original content"))
	require.NoError(t, pt.Map(0x5000, 1, pa, common.PTE_R|common.PTE_W|common.PTE_U))
	return a, cm, pt, pa
}

func TestCowFaultDetection(t *testing.T) {
	a, cm, pt, pa := setupCow(t, 8)
	_ = a

	t.Run("超出最大虚拟地址", func(t *testing.T) {
		assert.False(t, cm.IsCowFault(pt, common.MAXVA))
		assert.False(t, cm.IsCowFault(pt, common.MAXVA+1))
	})

	t.Run("未映射地址", func(t *testing.T) {
		assert.False(t, cm.IsCowFault(pt, 0x9000))
	})

	t.Run("可写映射不是COW故障", func(t *testing.T) {
		assert.False(t, cm.IsCowFault(pt, 0x5000))
	})

	t.Run("COW标记的映射", func(t *testing.T) {
		pte, ok := pt.Walk(0x5000)
		require.True(t, ok)
		pte.Clear(common.PTE_W)
		pte.Set(common.PTE_COW)

		assert.True(t, cm.IsCowFault(pt, 0x5000))
		// 同一页面内任意偏移都算
		assert.True(t, cm.IsCowFault(pt, 0x5abc))
	})

	_ = pa
}

func TestCowResolve(t *testing.T) {
	t.Run("唯一持有者走快速路径", func(t *testing.T) {
		a, cm, pt, pa := setupCow(t, 8)

		pte, _ := pt.Walk(0x5000)
		pte.Clear(common.PTE_W)
		pte.Set(common.PTE_COW)

		freeBefore := a.FreePages()
		got, err := cm.ResolveCowFault(pt, 0x5123)
		require.NoError(t, err)

		// 原页原地升级，不碰分配器
		assert.Equal(t, pa, got)
		assert.Equal(t, freeBefore, a.FreePages())
		assert.True(t, pte.IsWritable())
		assert.False(t, pte.IsCow())
		assert.Equal(t, 1, a.RefCount(pa))
	})

	t.Run("多持有者复制页面", func(t *testing.T) {
		a, cm, parent, pa := setupCow(t, 8)

		child := NewPageTable()
		require.NoError(t, cm.ForkShare(parent, child))
		require.Equal(t, 2, a.RefCount(pa))

		newpa, err := cm.ResolveCowFault(child, 0x5000)
		require.NoError(t, err)

		assert.NotEqual(t, pa, newpa)
		assert.Equal(t, []byte("original content"), a.PageBytes(newpa)[:16])
		// 旧页引用恰好减一
		assert.Equal(t, 1, a.RefCount(pa))
		assert.Equal(t, 1, a.RefCount(newpa))

		// 子进程现在映射到私有可写页面
		pte, ok := child.Walk(0x5000)
		require.True(t, ok)
		assert.Equal(t, newpa, pte.PhysAddr())
		assert.True(t, pte.IsWritable())
		assert.False(t, pte.IsCow())

		// 父进程的映射保持指向旧页
		ppte, _ := parent.Walk(0x5000)
		assert.Equal(t, pa, ppte.PhysAddr())

		// 两边各写各的
		copy(a.PageBytes(newpa), []byte("child private!!!"))
		assert.Equal(t, []byte("original content"), a.PageBytes(pa)[:16])
	})

	t.Run("分配失败干净上抛", func(t *testing.T) {
		a, cm, parent, pa := setupCow(t, 1)

		child := NewPageTable()
		require.NoError(t, cm.ForkShare(parent, child))
		require.Equal(t, 0, a.FreePages())

		_, err := cm.ResolveCowFault(child, 0x5000)
		require.Error(t, err)
		assert.Equal(t, ErrOutOfMemory, jerrors.Cause(err))

		// 失败不动引用计数，两个持有者都还在
		assert.Equal(t, 2, a.RefCount(pa))
	})

	t.Run("安装映射失败时回收新页", func(t *testing.T) {
		a, cm, parent, pa := setupCow(t, 8)

		child := NewPageTable()
		require.NoError(t, cm.ForkShare(parent, child))

		freeBefore := a.FreePages()
		_, err := cm.ResolveCowFault(&failingMapTable{child}, 0x5000)
		require.Error(t, err)

		// 复制页已经退回，旧页两份引用原封不动
		assert.Equal(t, freeBefore, a.FreePages())
		assert.Equal(t, 2, a.RefCount(pa))
	})

	t.Run("无效映射报错", func(t *testing.T) {
		_, cm, pt, _ := setupCow(t, 8)

		_, err := cm.ResolveCowFault(pt, 0x9000)
		require.Error(t, err)
		assert.Equal(t, ErrBadAddress, jerrors.Cause(err))
	})
}

func TestForkShare(t *testing.T) {
	a, cm, parent, pa := setupCow(t, 8)

	child := NewPageTable()
	require.NoError(t, cm.ForkShare(parent, child))

	// 父子都降级为只读COW，共享同一物理页面
	for _, pt := range []*PageTable{parent, child} {
		pte, ok := pt.Walk(0x5000)
		require.True(t, ok)
		assert.True(t, pte.IsValid())
		assert.False(t, pte.IsWritable())
		assert.True(t, pte.IsCow())
		assert.Equal(t, pa, pte.PhysAddr())
	}
	assert.Equal(t, 2, a.RefCount(pa))

	// 连环fork再叠一份引用
	grandchild := NewPageTable()
	require.NoError(t, cm.ForkShare(child, grandchild))
	assert.Equal(t, 3, a.RefCount(pa))

	var _ basic.PageTable = child
}
