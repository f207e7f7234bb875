package basic

import (
	"fmt"

	"github.com/zhukovaskychina/xkernel-mm/logger"
)

// PanicHalter 默认的停机实现：记录错误日志后panic，不做任何恢复
// 对应内核里的panic，调用方不应该假设它会返回
type PanicHalter struct{}

func NewPanicHalter() *PanicHalter {
	return &PanicHalter{}
}

func (h *PanicHalter) Haltf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Errorf("kernel halt: %s\n", msg)
	panic(msg)
}
