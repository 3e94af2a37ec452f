package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"binharness/pkg/canon"
	"binharness/pkg/contract"
	gex "binharness/plugins/generator/exhaustive"
	grnd "binharness/plugins/generator/random"
	rfs "binharness/plugins/reader/filesystem"
	wfs "binharness/plugins/writer/filesystem"
	wjl "binharness/plugins/writer/jsonl"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
// 解码失败归为配置错误。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrConfigInvalid, err)
	}
	return nil
}

// ExhaustiveOptions: exhaustive 来源选项。Alphabet 与 AlphabetFile 二选一。
type ExhaustiveOptions struct {
	Alphabet     []string    `json:"alphabet,omitempty"`
	AlphabetFile string      `json:"alphabet_file,omitempty"`
	Delimiter    string      `json:"delimiter,omitempty"`
	Reader       rfs.Options `json:"reader,omitempty"`
}

// RandomOptions: random 来源选项。
type RandomOptions struct {
	Alphabet     []string    `json:"alphabet,omitempty"`
	AlphabetFile string      `json:"alphabet_file,omitempty"`
	N            int         `json:"n"`
	Seed         int64       `json:"seed"`
	Delimiter    string      `json:"delimiter,omitempty"`
	Reader       rfs.Options `json:"reader,omitempty"`
}

// FileOptions: file 来源选项。
type FileOptions struct {
	Inputs []string    `json:"inputs"`
	Reader rfs.Options `json:"reader,omitempty"`
}

// NewSource 工厂签名：接收原样 JSON Options；加载字母表需要 ctx。
type NewSource func(ctx context.Context, raw json.RawMessage) (contract.Source, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// NewAppender 工厂签名：接收原样 JSON Options。
type NewAppender func(raw json.RawMessage) (contract.Appender, error)

// Source 按模式注册的 payload 来源（显式、零反射）。
var Source = map[contract.Mode]NewSource{
	// exhaustive: 字母表全部 3 组合，保持字母表原序
	contract.ModeExhaustive: func(ctx context.Context, raw json.RawMessage) (contract.Source, error) {
		var opts ExhaustiveOptions
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		alphabet, err := loadAlphabet(ctx, opts.Alphabet, opts.AlphabetFile, &opts.Reader)
		if err != nil {
			return nil, err
		}
		return gex.New(alphabet, &gex.Options{Delimiter: opts.Delimiter})
	},
	// random: 带种子抽样，三元组排序后拼接
	contract.ModeRandom: func(ctx context.Context, raw json.RawMessage) (contract.Source, error) {
		var opts RandomOptions
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		alphabet, err := loadAlphabet(ctx, opts.Alphabet, opts.AlphabetFile, &opts.Reader)
		if err != nil {
			return nil, err
		}
		return grnd.New(alphabet, opts.N, opts.Seed, &grnd.Options{Delimiter: opts.Delimiter})
	},
	// file: 文件/目录/STDIN 的有效行
	contract.ModeFile: func(_ context.Context, raw json.RawMessage) (contract.Source, error) {
		var opts FileOptions
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		if len(opts.Inputs) == 0 {
			return nil, fmt.Errorf("%w: file mode requires inputs", contract.ErrConfigInvalid)
		}
		return rfs.New(&opts.Reader).Source(opts.Inputs...), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（覆盖写/原子替换可配置）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}

// Appender 工厂注册表。
var Appender = map[string]NewAppender{
	// jsonl: 边车锁互斥的 JSON Lines 追加
	"jsonl": func(raw json.RawMessage) (contract.Appender, error) {
		var opts wjl.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wjl.New(&opts), nil
	},
}

// Modes 返回已注册模式（排序，便于帮助信息稳定）。
func Modes() []string {
	out := make([]string, 0, len(Source))
	for m := range Source {
		out = append(out, string(m))
	}
	sort.Strings(out)
	return out
}

func loadAlphabet(ctx context.Context, inline []string, path string, ropts *rfs.Options) ([]string, error) {
	switch {
	case len(inline) > 0 && path != "":
		return nil, fmt.Errorf("%w: alphabet and alphabet_file are mutually exclusive", contract.ErrConfigInvalid)
	case path != "":
		return rfs.New(ropts).LoadAlphabet(ctx, path)
	default:
		// 内联字母表与文件同样归一、去空
		out := make([]string, 0, len(inline))
		for _, s := range inline {
			if n := canon.Normalize(s); n != "" {
				out = append(out, n)
			}
		}
		if len(out) < 3 {
			return nil, fmt.Errorf("%w: alphabet must contain at least 3 symbols, got %d", contract.ErrInvalidArgument, len(out))
		}
		return out, nil
	}
}
