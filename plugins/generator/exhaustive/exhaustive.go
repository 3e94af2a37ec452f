// Package exhaustive 枚举字母表的全部无序三元组合。
package exhaustive

import (
	"context"
	"fmt"

	"binharness/pkg/contract"
)

// DefaultDelimiter 为三元组内符号分隔符。
const DefaultDelimiter = "-"

// Options: 最小必要选项。
type Options struct {
	Delimiter string `json:"delimiter"`
}

// Exhaustive 按组合枚举顺序产出 C(n,3) 个 payload；三个符号保持字母表原序，不排序。
type Exhaustive struct {
	alphabet []string
	delim    string
}

var _ contract.Source = (*Exhaustive)(nil)

// New 构造枚举器；字母表不足 3 个符号时报错。
func New(alphabet []string, opts *Options) (*Exhaustive, error) {
	if len(alphabet) < 3 {
		return nil, fmt.Errorf("%w: alphabet must contain at least 3 symbols, got %d", contract.ErrInvalidArgument, len(alphabet))
	}
	d := DefaultDelimiter
	if opts != nil && opts.Delimiter != "" {
		d = opts.Delimiter
	}
	a := make([]string, len(alphabet))
	copy(a, alphabet)
	return &Exhaustive{alphabet: a, delim: d}, nil
}

// Iterate 以字典序下标 (i<j<k) 产出三元组。
func (e *Exhaustive) Iterate(ctx context.Context, yield func(string) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	a := e.alphabet
	for i := 0; i < len(a)-2; i++ {
		for j := i + 1; j < len(a)-1; j++ {
			for k := j + 1; k < len(a); k++ {
				if err := yield(a[i] + e.delim + a[j] + e.delim + a[k]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
