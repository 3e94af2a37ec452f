// Package random 以带种子的伪随机源抽样三元组。
package random

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"binharness/pkg/canon"
	"binharness/pkg/contract"
)

// DefaultDelimiter 为三元组内符号分隔符。
const DefaultDelimiter = "-"

// Options: 最小必要选项。
type Options struct {
	Delimiter string `json:"delimiter"`
}

// Random 产出 n 个独立抽样：每次不放回抽 3 个符号，归一后按字典序排序再拼接，
// 使同一三元组的任意排列得到相同 payload。
type Random struct {
	alphabet []string
	n        int
	seed     int64
	delim    string
}

var _ contract.Source = (*Random)(nil)

// New 要求 n>=0 且字母表至少 3 个符号。
func New(alphabet []string, n int, seed int64, opts *Options) (*Random, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: n must be >= 0, got %d", contract.ErrInvalidArgument, n)
	}
	if len(alphabet) < 3 {
		return nil, fmt.Errorf("%w: alphabet must contain at least 3 symbols, got %d", contract.ErrInvalidArgument, len(alphabet))
	}
	d := DefaultDelimiter
	if opts != nil && opts.Delimiter != "" {
		d = opts.Delimiter
	}
	a := make([]string, len(alphabet))
	copy(a, alphabet)
	return &Random{alphabet: a, n: n, seed: seed, delim: d}, nil
}

// Seed 返回构造时的种子。
func (r *Random) Seed() int64 { return r.seed }

// Iterate 每次调用都从种子重新开始，序列可复现。
func (r *Random) Iterate(ctx context.Context, yield func(string) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	rng := rand.New(rand.NewPCG(uint64(r.seed), uint64(r.seed)))
	for i := 0; i < r.n; i++ {
		if err := yield(r.Join(r.sample(rng))); err != nil {
			return err
		}
	}
	return nil
}

// Join 归一并排序三个符号后拼接。
func (r *Random) Join(a, b, c string) string {
	tokens := []string{canon.Normalize(a), canon.Normalize(b), canon.Normalize(c)}
	slices.Sort(tokens)
	return strings.Join(tokens, r.delim)
}

// sample 不放回地抽取 3 个不同下标，不修改字母表。
func (r *Random) sample(rng *rand.Rand) (string, string, string) {
	n := len(r.alphabet)
	i := rng.IntN(n)
	j := rng.IntN(n - 1)
	if j >= i {
		j++
	}
	lo, hi := min(i, j), max(i, j)
	k := rng.IntN(n - 2)
	if k >= lo {
		k++
	}
	if k >= hi {
		k++
	}
	return r.alphabet[i], r.alphabet[j], r.alphabet[k]
}
