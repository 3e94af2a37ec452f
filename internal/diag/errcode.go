package diag

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"binharness/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志汇总，与退出码解耦。
type Code string

const (
	CodeUnknown Code = "unknown"
	CodeConfig  Code = "config"
	CodeInput   Code = "input"
	CodeNoop    Code = "noop"
	CodeCancel  Code = "cancel"
	CodeIO      Code = "io"
)

// Classify 将错误归为最小分类。
// 仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	if errors.Is(err, contract.ErrConfigInvalid) {
		return CodeConfig
	}
	if errors.Is(err, contract.ErrInvalidArgument) || errors.Is(err, contract.ErrLengthMismatch) {
		return CodeInput
	}
	if errors.Is(err, contract.ErrNothingProduced) {
		return CodeNoop
	}
	if errors.Is(err, contract.ErrPathInvalid) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return CodeIO
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	var lerr *os.LinkError
	if errors.As(err, &lerr) {
		return CodeIO
	}
	return CodeUnknown
}
