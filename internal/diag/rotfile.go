package diag

import (
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 当前日志文件固定名；轮转后 lumberjack 追加 UTC 时间戳：binharness-current-<ts>.txt。
const (
	currentName = "binharness-current.txt"

	maxSizeMB  = 10
	maxBackups = 20
)

// newRotatingSink 返回按大小轮转的日志文件；首次写入时创建目录与文件。
func newRotatingSink(dir string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, currentName),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
}
