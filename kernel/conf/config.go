package conf

import (
	"os"
	"path/filepath"

	"github.com/zhukovaskychina/xkernel-mm/kernel/common"
	"github.com/zhukovaskychina/xkernel-mm/logger"

	"gopkg.in/ini.v1"
)

var ConfigPath string

type CommandLineArgs struct {
	ConfigPath string
}

/*
*
pool_size	= 30
bucket_count	= 13
block_size	= 1024
phys_pages	= 1024
log_error	= logs/error.log
log_infos	= logs/kernel.log
*/
type Cfg struct {
	Raw *ini.File

	// buffer cache
	PoolSize    int `default:"30" yaml:"pool_size" json:"pool_size,omitempty"`
	BucketCount int `default:"13" yaml:"bucket_count" json:"bucket_count,omitempty"`
	BlockSize   int `default:"1024" yaml:"block_size" json:"block_size,omitempty"`

	// physical memory
	PhysBase  uint64 `default:"2147483648" yaml:"phys_base" json:"phys_base,omitempty"`
	PhysPages int    `default:"1024" yaml:"phys_pages" json:"phys_pages,omitempty"`

	// logs
	LogError string `default:"logs/error.log" yaml:"log_error" json:"log_error,omitempty"`
	LogInfos string `default:"logs/kernel.log" yaml:"log_infos" json:"log_infos,omitempty"`
	LogLevel string `default:"info" yaml:"log_level" json:"log_level,omitempty"`
}

func NewCfg() *Cfg {
	return &Cfg{
		Raw:         ini.Empty(),
		PoolSize:    common.NBUF,
		BucketCount: common.NBUCKET,
		BlockSize:   common.BLOCK_SIZE,
		PhysBase:    common.KERNBASE,
		PhysPages:   common.DEFAULT_PHYS_PAGES,
		LogError:    "logs/error.log",
		LogInfos:    "logs/kernel.log",
		LogLevel:    "info",
	}
}

// PhysTop 受管物理内存的上界
func (cfg *Cfg) PhysTop() uint64 {
	return cfg.PhysBase + uint64(cfg.PhysPages)*common.PAGE_SIZE
}

func (cfg *Cfg) Load(args *CommandLineArgs) *Cfg {
	setHomePath(args)
	iniFile, err := cfg.loadConfiguration(args)
	if err != nil {
		logger.Debugf("加载配置文件时有异常: %v\n", err)
		os.Exit(1)
	}
	cfg.Raw = iniFile

	cfg.parseMemCfg(cfg.Raw.Section("mem"))
	cfg.parseLogsCfg(cfg.Raw.Section("logs"))
	return cfg
}

func setHomePath(args *CommandLineArgs) {
	if args.ConfigPath != "" {
		ConfigPath = args.ConfigPath
		return
	}

	ConfigPath, _ = filepath.Abs(".")
}

func (cfg *Cfg) loadConfiguration(args *CommandLineArgs) (*ini.File, error) {
	if args.ConfigPath == "" {
		return ini.Empty(), nil
	}

	if _, err := os.Stat(args.ConfigPath); err != nil {
		return nil, err
	}

	return ini.Load(args.ConfigPath)
}

func (cfg *Cfg) parseMemCfg(section *ini.Section) *Cfg {
	cfg.PoolSize = section.Key("pool_size").MustInt(cfg.PoolSize)
	cfg.BucketCount = section.Key("bucket_count").MustInt(cfg.BucketCount)
	cfg.BlockSize = section.Key("block_size").MustInt(cfg.BlockSize)
	cfg.PhysBase = section.Key("phys_base").MustUint64(cfg.PhysBase)
	cfg.PhysPages = section.Key("phys_pages").MustInt(cfg.PhysPages)

	if cfg.PoolSize <= 0 || cfg.BucketCount <= 0 {
		logger.Error("pool_size和bucket_count必须为正数")
		os.Exit(1)
	}
	if cfg.PhysBase%common.PAGE_SIZE != 0 {
		logger.Error("phys_base必须按页面对齐")
		os.Exit(1)
	}
	return cfg
}

func (cfg *Cfg) parseLogsCfg(section *ini.Section) *Cfg {
	cfg.LogError = section.Key("log_error").MustString(cfg.LogError)
	cfg.LogInfos = section.Key("log_infos").MustString(cfg.LogInfos)
	cfg.LogLevel = section.Key("log_level").MustString(cfg.LogLevel)
	return cfg
}
