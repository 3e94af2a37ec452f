package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"binharness/pkg/canon"
	"binharness/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
	// MaxLineBytes 为单行上限；超过则报错。默认 1MiB。
	MaxLineBytes int `json:"max_line_bytes"`
	// ExcludeDirNames: 在扫描目录时跳过这些目录名（基名完全匹配，大小写不敏感）。
	// 仅影响目录递归，不影响单文件 root。
	ExcludeDirNames []string `json:"exclude_dir_names"`
}

// FileSystem 按行读取文件/目录/STDIN，产出非空、NFKC 归一且去首尾空白的行。
type FileSystem struct {
	bufSize int
	maxLine int
	// 以小写形式保存，比较时按小写基名匹配。
	excludeDir map[string]struct{}
	stdin      io.Reader
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	const (
		defaultBuf  = 64 * 1024
		defaultLine = 1024 * 1024
	)
	b, ml := defaultBuf, defaultLine
	if opts != nil && opts.BufSize > 0 {
		b = opts.BufSize
	}
	if opts != nil && opts.MaxLineBytes > 0 {
		ml = opts.MaxLineBytes
	}
	if ml < b {
		ml = b
	}
	ex := make(map[string]struct{})
	if opts != nil {
		for _, name := range opts.ExcludeDirNames {
			if name == "" {
				continue
			}
			ex[strings.ToLower(name)] = struct{}{}
		}
	}
	return &FileSystem{bufSize: b, maxLine: ml, excludeDir: ex, stdin: os.Stdin}
}

// Lines 遍历 roots，按稳定顺序对每个有效行调用 yield。
// roots 仅含 "-" 时读取 STDIN；"-" 不能与其他根混用。
func (r *FileSystem) Lines(ctx context.Context, roots []string, yield func(line string) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if len(roots) == 0 {
		return fmt.Errorf("%w: no input roots", contract.ErrInvalidArgument)
	}
	if len(roots) == 1 && roots[0] == "-" {
		return r.scan(r.stdin, yield)
	}
	for _, s := range roots {
		if s == "-" {
			return errors.New("stdin '-' cannot be mixed with other roots")
		}
	}
	for _, root := range roots {
		if err := r.iterateOne(ctx, root, yield); err != nil {
			return err
		}
	}
	return nil
}

// Source 将 roots 绑定为 file 模式的 payload 来源。
func (r *FileSystem) Source(roots ...string) contract.Source {
	return contract.SourceFunc(func(ctx context.Context, yield func(string) error) error {
		return r.Lines(ctx, roots, yield)
	})
}

// ReadAll 收集全部有效行。
func (r *FileSystem) ReadAll(ctx context.Context, roots ...string) ([]string, error) {
	var out []string
	err := r.Lines(ctx, roots, func(line string) error {
		out = append(out, line)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LoadAlphabet 读取字母表文件；少于 3 个符号时报错。
func (r *FileSystem) LoadAlphabet(ctx context.Context, path string) ([]string, error) {
	alphabet, err := r.ReadAll(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(alphabet) < 3 {
		return nil, fmt.Errorf("%w: alphabet must contain at least 3 symbols, got %d", contract.ErrInvalidArgument, len(alphabet))
	}
	return alphabet, nil
}

func (r *FileSystem) iterateOne(ctx context.Context, root string, yield func(string) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return r.walkDir(ctx, root, yield)
	}
	if !info.Mode().IsRegular() { // 跳过非常规文件
		return nil
	}
	return r.scanFile(root, yield)
}

func (r *FileSystem) walkDir(ctx context.Context, dir string, yield func(string) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	// 稳定顺序：字典序
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	// 先目录（不跟随目录符号链接）
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, skip := r.excludeDir[strings.ToLower(e.Name())]; skip {
			continue
		}
		if err := r.walkDir(ctx, filepath.Join(dir, e.Name()), yield); err != nil {
			return err
		}
	}
	// 再文件（允许指向常规文件的符号链接）
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		t, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !t.Mode().IsRegular() {
			continue
		}
		if err := r.scanFile(p, yield); err != nil {
			return err
		}
	}
	return nil
}

func (r *FileSystem) scanFile(p string, yield func(string) error) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := r.scan(f, yield); err != nil {
		return fmt.Errorf("%s: %w", p, err)
	}
	return nil
}

func (r *FileSystem) scan(src io.Reader, yield func(string) error) error {
	sc := bufio.NewScanner(bufio.NewReaderSize(src, r.bufSize))
	sc.Buffer(make([]byte, 0, r.bufSize), r.maxLine)
	sc.Split(splitLines)
	for sc.Scan() {
		line := canon.Normalize(sc.Text())
		if line == "" {
			continue
		}
		if err := yield(line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// splitLines 按 Unicode 行边界切分：\n、\r、\r\n、\v、\f、\x1c、\x1d、\x1e、U+0085、U+2028、U+2029。
// 末行无终止符时同样产出。
func splitLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i := 0; i < len(data); {
		c, size := utf8.DecodeRune(data[i:])
		if c == utf8.RuneError && !atEOF && !utf8.FullRune(data[i:]) {
			// 多字节边界符可能被缓冲截断
			return 0, nil, nil
		}
		switch c {
		case '\n', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
			return i + size, data[:i], nil
		case '\r':
			switch {
			case i+1 < len(data) && data[i+1] == '\n':
				return i + 2, data[:i], nil
			case i+1 < len(data) || atEOF:
				return i + 1, data[:i], nil
			default:
				// 需要下一个字节判断是否为 \r\n
				return 0, nil, nil
			}
		}
		i += size
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
