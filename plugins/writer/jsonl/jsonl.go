// Package jsonl 以只追加方式写 JSON Lines 日志，跨进程写者按路径互斥。
package jsonl

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"binharness/pkg/contract"
)

// LockSuffix 为边车锁文件后缀：<path>.lock。
const LockSuffix = ".lock"

// Options: 最小必要选项。
type Options struct {
	// PermFile/PermDir: 可选权限；为 0 表示使用默认。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	PermDir  os.FileMode `json:"perm_dir,omitempty"`
	// PollInterval: 锁被占用时的重试间隔；<=0 使用 10ms。
	PollInterval time.Duration `json:"poll_interval,omitempty"`
	// Sync: 追加后是否 fsync。
	Sync bool `json:"sync,omitempty"`
}

// Appender 在持有 <path>.lock 排他锁期间打开日志、追加整行、关闭。
type Appender struct {
	permF os.FileMode
	permD os.FileMode
	poll  time.Duration
	sync  bool
}

var _ contract.Appender = (*Appender)(nil)

// New 创建 Appender。
func New(opts *Options) *Appender {
	a := &Appender{permF: 0o644, permD: 0o755, poll: 10 * time.Millisecond}
	if opts == nil {
		return a
	}
	if opts.PermFile != 0 {
		a.permF = opts.PermFile
	}
	if opts.PermDir != 0 {
		a.permD = opts.PermDir
	}
	if opts.PollInterval > 0 {
		a.poll = opts.PollInterval
	}
	a.sync = opts.Sync
	return a
}

// Append 追加一行；line 不得包含换行符（由本函数补尾部 '\n'）。
// 锁在任何返回路径上都会释放。
func (a *Appender) Append(ctx context.Context, id contract.ArtifactID, line []byte) (err error) {
	if bytes.ContainsAny(line, "\r\n") {
		return fmt.Errorf("%w: line contains newline", contract.ErrInvalidArgument)
	}
	dest := filepath.Clean(filepath.FromSlash(string(id)))
	if dest == "." || dest == "" {
		return contract.ErrPathInvalid
	}
	if err := os.MkdirAll(filepath.Dir(dest), a.permD); err != nil {
		return err
	}

	lk, err := Acquire(ctx, dest+LockSuffix, a.poll)
	if err != nil {
		return fmt.Errorf("lock %s: %w", dest, err)
	}
	defer func() {
		if uerr := lk.Release(); uerr != nil && err == nil {
			err = uerr
		}
	}()

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, a.permF)
	if err != nil {
		return err
	}
	buf := make([]byte, 0, len(line)+1)
	buf = append(append(buf, line...), '\n')
	if _, err := f.Write(buf); err != nil {
		_ = f.Close()
		return err
	}
	if a.sync {
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return err
		}
	}
	return f.Close()
}
