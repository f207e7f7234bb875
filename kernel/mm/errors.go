package mm

import "errors"

var (
	// ErrOutOfMemory 空闲链耗尽，可恢复，由调用方决定如何收场
	ErrOutOfMemory = errors.New("out of physical memory")

	// ErrBadAddress 地址未对齐或不在受管物理范围内
	ErrBadAddress = errors.New("bad physical address")

	// ErrRemap 目标虚拟地址已经存在有效映射
	ErrRemap = errors.New("virtual address already mapped")

	// ErrInvalidRange 非法的映射区间
	ErrInvalidRange = errors.New("invalid mapping range")
)

// IsOutOfMemory 检查是否为物理内存耗尽错误
func IsOutOfMemory(err error) bool {
	return errors.Is(err, ErrOutOfMemory)
}

// IsBadAddress 检查是否为非法物理地址错误
func IsBadAddress(err error) bool {
	return errors.Is(err, ErrBadAddress)
}

// IsRemap 检查是否为重复映射错误
func IsRemap(err error) bool {
	return errors.Is(err, ErrRemap)
}
