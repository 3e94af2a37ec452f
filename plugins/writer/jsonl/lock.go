package jsonl

import (
	"context"
	"errors"
	"os"
	"time"
)

// errLocked 表示锁当前被其他持有者占用（非阻塞尝试失败）。
var errLocked = errors.New("lock held")

// Lock 是按路径命名的咨询锁，跨进程有效。
type Lock struct {
	f *os.File
}

// Acquire 以非阻塞方式轮询获取 path 上的排他锁，直到成功或 ctx 结束。
func Acquire(ctx context.Context, path string, poll time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	for {
		err := tryLock(f)
		if err == nil {
			return &Lock{f: f}, nil
		}
		if !errors.Is(err, errLocked) {
			_ = f.Close()
			return nil, err
		}
		t := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			t.Stop()
			_ = f.Close()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// Release 释放锁并关闭句柄；重复调用安全。锁文件本身保留。
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	uerr := unlock(l.f)
	cerr := l.f.Close()
	l.f = nil
	if uerr != nil {
		return uerr
	}
	return cerr
}
