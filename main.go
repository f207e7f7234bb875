package main

import (
	"flag"
	"fmt"

	jerrors "github.com/juju/errors"

	"github.com/zhukovaskychina/xkernel-mm/kernel/basic"
	"github.com/zhukovaskychina/xkernel-mm/kernel/buffer"
	"github.com/zhukovaskychina/xkernel-mm/kernel/common"
	"github.com/zhukovaskychina/xkernel-mm/kernel/conf"
	"github.com/zhukovaskychina/xkernel-mm/kernel/mm"
	"github.com/zhukovaskychina/xkernel-mm/kernel/storage"
	"github.com/zhukovaskychina/xkernel-mm/logger"
)

const help = `
******************************************************************************************

 __   ___  _______ _____  _   _ ______ _          __  __ __  __ 
 \ \ / / |/ /  ____|  __ \| \ | |  ____| |        |  \/  |  \/  |
  \ V /| ' /| |__  | |__) |  \| | |__  | |  ______| \  / | \  / |
   > < |  < |  __| |  _  /| . ` + "`" + ` |  __| | | |______| |\/| | |\/| |
  / . \| . \| |____| | \ \| |\  | |____| |____   | |  | | |  | |
 /_/ \_\_|\_\______|_|  \_\_| \_|______|______|  |_|  |_|_|  |_|

******************************************************************************************
*帮助:
*1. -- help
*2. -- configPath   指定kernel.ini配置文件
******************************************************************************************
`

func main() {
	fmt.Println("Starting XKernel memory core...")

	var configPath string
	var showHelp bool
	flag.StringVar(&configPath, "configPath", "", "配置文件路径")
	flag.BoolVar(&showHelp, "help", false, "显示帮助")
	flag.Parse()

	if showHelp {
		fmt.Print(help)
		return
	}

	args := &conf.CommandLineArgs{
		ConfigPath: configPath,
	}

	config := conf.NewCfg().Load(args)

	logConfig := logger.LogConfig{
		ErrorLogPath: config.LogError,
		InfoLogPath:  config.LogInfos,
		LogLevel:     config.LogLevel,
	}
	if err := logger.InitLogger(logConfig); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	logger.Infof("Logger initialized with level: %s\n", config.LogLevel)

	clock := basic.NewTickClock()
	halter := basic.NewPanicHalter()

	disk := storage.NewRAMDisk(config.BlockSize)
	cache := buffer.NewCache(&buffer.CacheConfig{
		PoolSize:    config.PoolSize,
		BucketCount: config.BucketCount,
		BlockSize:   config.BlockSize,
		Device:      disk,
		Clock:       clock,
		Halter:      halter,
	})

	alloc := mm.NewAllocator(&mm.AllocatorConfig{
		PhysBase: config.PhysBase,
		PhysTop:  config.PhysTop(),
		Halter:   halter,
	})
	cow := mm.NewCowManager(alloc)

	logger.Infof("Memory core up: %d buffers, %d free pages\n", config.PoolSize, alloc.FreePages())

	if err := selfCheck(cache, alloc, cow); err != nil {
		logger.Errorf("Self check failed: %v\n", err)
		panic(err)
	}

	stats := cache.GetStats()
	logger.Infof("Self check passed: cache hits=%d misses=%d evictions=%d, free pages=%d\n",
		stats["hits"], stats["misses"], stats["evictions"], alloc.FreePages())
}

// selfCheck 启动自检：走一遍缓存读写和一次完整的COW fork流程
func selfCheck(cache *buffer.Cache, alloc *mm.Allocator, cow *mm.CowManager) error {
	// 缓存读改写回
	b, err := cache.Read(1, 1)
	if err != nil {
		return jerrors.Trace(err)
	}
	copy(b.GetData(), []byte("xkernel boot block"))
	if err := cache.Write(b); err != nil {
		cache.Release(b)
		return jerrors.Trace(err)
	}
	cache.Release(b)

	// COW fork：共享、写故障、各自独立
	parent := mm.NewPageTable()
	pa, err := alloc.Alloc()
	if err != nil {
		return jerrors.Trace(err)
	}
	copy(alloc.PageBytes(pa), []byte("parent data"))
	if err := parent.Map(0x1000, 1, pa, common.PTE_R|common.PTE_W|common.PTE_U); err != nil {
		return jerrors.Trace(err)
	}

	child := mm.NewPageTable()
	if err := cow.ForkShare(parent, child); err != nil {
		return jerrors.Trace(err)
	}
	if !cow.IsCowFault(child, 0x1000) {
		return jerrors.New("child mapping not cow protected after fork")
	}
	newpa, err := cow.ResolveCowFault(child, 0x1000)
	if err != nil {
		return jerrors.Trace(err)
	}
	if newpa == pa {
		return jerrors.New("cow fault with two owners returned the shared page")
	}
	return nil
}
