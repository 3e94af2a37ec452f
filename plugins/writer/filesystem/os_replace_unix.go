//go:build !windows

package filesystem

import "os"

// osReplace: POSIX 下同目录 rename 即原子替换，读者只会看到旧或新快照。
func osReplace(tmpPath, dest string) error {
	return os.Rename(tmpPath, dest)
}

// syncDir 尽力 fsync 父目录，使 rename 落盘。
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
