package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// loadDotEnv 把 .env 注入进程环境：文件不存在时忽略，已存在的环境变量不覆盖。
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// preflightCheckOutputs 在运行前确认日志与快照的目标目录可写。
func preflightCheckOutputs(paths ...string) error {
	seen := map[string]bool{}
	for _, p := range paths {
		dir := filepath.Dir(filepath.FromSlash(p))
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := checkWritableDir(dir); err != nil {
			return err
		}
	}
	return nil
}

// checkWritableDir: 目录存在时尝试创建并删除临时文件；
// 不存在时向上找到最近的已存在祖先并检查其可写性。
func checkWritableDir(dir string) error {
	for {
		st, err := os.Stat(dir)
		switch {
		case err == nil && st.IsDir():
			f, err := os.CreateTemp(dir, ".wcheck-*")
			if err != nil {
				return err
			}
			name := f.Name()
			_ = f.Close()
			return os.Remove(name)
		case err == nil:
			return fmt.Errorf("路径存在但不是目录: %s", dir)
		case !os.IsNotExist(err):
			return err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return fmt.Errorf("无法确定可写的父目录: %s", dir)
		}
		dir = parent
	}
}
