package contract

import "errors"

// 最小错误分类；上层以 errors.Is 判定，diag.Classify 据此归类。
var (
	// ErrInvalidArgument: 参数越界（bin 数 <=0、N<0、字母表不足 3 个符号等）。
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLengthMismatch: 盘面 tiles/locks 长度不等于 size²。
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrConfigInvalid: 配置错误（在开始任何工作之前检出）。
	ErrConfigInvalid = errors.New("config invalid")
	// ErrNothingProduced: 模式执行完毕却没有产出任何运行记录。
	ErrNothingProduced = errors.New("nothing produced")
	// ErrPathInvalid: 目标标识映射为无效路径（空串、"." 等）。
	ErrPathInvalid = errors.New("path invalid")
)
