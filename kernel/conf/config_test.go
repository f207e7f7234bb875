package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xkernel-mm/kernel/common"
)

func TestCfgDefaults(t *testing.T) {
	cfg := NewCfg().Load(&CommandLineArgs{})

	assert.Equal(t, common.NBUF, cfg.PoolSize)
	assert.Equal(t, common.NBUCKET, cfg.BucketCount)
	assert.Equal(t, common.BLOCK_SIZE, cfg.BlockSize)
	assert.Equal(t, uint64(common.KERNBASE), cfg.PhysBase)
	assert.Equal(t, cfg.PhysBase+uint64(cfg.PhysPages)*common.PAGE_SIZE, cfg.PhysTop())
}

func TestCfgLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.ini")
	content := `
[mem]
pool_size = 64
bucket_count = 17
block_size = 512
phys_pages = 256

[logs]
log_level = debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := NewCfg().Load(&CommandLineArgs{ConfigPath: path})

	assert.Equal(t, 64, cfg.PoolSize)
	assert.Equal(t, 17, cfg.BucketCount)
	assert.Equal(t, 512, cfg.BlockSize)
	assert.Equal(t, 256, cfg.PhysPages)
	assert.Equal(t, "debug", cfg.LogLevel)
	// 未出现的键保持默认
	assert.Equal(t, uint64(common.KERNBASE), cfg.PhysBase)
}
