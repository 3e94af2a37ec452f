package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"binharness/internal/diag"
	"binharness/pkg/contract"
)

// EnvPrefix 为环境变量覆盖前缀。
const EnvPrefix = "BIN_HARNESS_"

// 默认输出路径。
const (
	DefaultOut     = ".audit-logs/bin_harness/runs.jsonl"
	DefaultSummary = ".audit-logs/bin_harness/summaries/latest.json"
)

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		NBins:         intPtr(contract.DefaultNBins),
		TopK:          intPtr(contract.DefaultTopK),
		MemberLimit:   intPtr(contract.DefaultMemberLimit),
		Out:           DefaultOut,
		Summary:       DefaultSummary,
		IncludeCounts: boolPtr(false),
		Logging:       Logging{Level: "info", Dir: diag.DefaultLogDir},
		Writer:        Writer{Atomic: boolPtr(true)},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", contract.ErrConfigInvalid, err)
	}
	return cfg, nil
}

// LoadYAML 解析 YAML 配置（键与 JSON 相同，严格拒绝未知字段）。
func LoadYAML(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("%w: %v", contract.ErrConfigInvalid, err)
	}
	return cfg, nil
}

// LoadFile 按扩展名选择解码：.yaml/.yml 走 YAML，其余按 JSON。
func LoadFile(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return Config{}, err
		}
		defer f.Close()
		return LoadYAML(f)
	default:
		return LoadJSON(path, nil)
	}
}

// Merge 按优先级合并（后者覆盖前者）。
// nil 指针、空串与 0 权限视为未设置，不覆盖；指针值复制，不与输入共享。
func Merge(base, over Config) Config {
	out := base
	if over.NBins != nil {
		out.NBins = intPtr(*over.NBins)
	}
	if over.TopK != nil {
		out.TopK = intPtr(*over.TopK)
	}
	if over.MemberLimit != nil {
		out.MemberLimit = intPtr(*over.MemberLimit)
	}
	if s := strings.TrimSpace(over.Out); s != "" {
		out.Out = s
	}
	if s := strings.TrimSpace(over.Summary); s != "" {
		out.Summary = s
	}
	if over.IncludeCounts != nil {
		out.IncludeCounts = boolPtr(*over.IncludeCounts)
	}
	if s := strings.TrimSpace(over.DatasetID); s != "" {
		out.DatasetID = s
	}
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}
	if s := strings.TrimSpace(over.Logging.Dir); s != "" {
		out.Logging.Dir = s
	}
	if over.Writer.Atomic != nil {
		out.Writer.Atomic = boolPtr(*over.Writer.Atomic)
	}
	if over.Writer.PermFile != 0 {
		out.Writer.PermFile = over.Writer.PermFile
	}
	if over.Writer.PermDir != 0 {
		out.Writer.PermDir = over.Writer.PermDir
	}
	if over.Writer.BufSize != 0 {
		out.Writer.BufSize = over.Writer.BufSize
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 BIN_HARNESS_；集合之外的键忽略；值无法解析时报配置错误。
// 支持：N_BINS, TOP_K, MEMBER_LIMIT, OUT, SUMMARY, INCLUDE_COUNTS, DATASET_ID, LOG_LEVEL, LOG_DIR, WRITER_ATOMIC
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[len(EnvPrefix):eq]
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			continue
		}
		var err error
		switch key {
		case "N_BINS":
			over.NBins, err = atoiPtr(val)
		case "TOP_K":
			over.TopK, err = atoiPtr(val)
		case "MEMBER_LIMIT":
			over.MemberLimit, err = atoiPtr(val)
		case "OUT":
			over.Out = val
		case "SUMMARY":
			over.Summary = val
		case "INCLUDE_COUNTS":
			over.IncludeCounts, err = parseBoolPtr(val)
		case "DATASET_ID":
			over.DatasetID = val
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "LOG_DIR":
			over.Logging.Dir = val
		case "WRITER_ATOMIC":
			over.Writer.Atomic, err = parseBoolPtr(val)
		}
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s%s=%q", contract.ErrConfigInvalid, EnvPrefix, key, val)
		}
	}
	return over, nil
}

func atoiPtr(s string) (*int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseBoolPtr(s string) (*bool, error) {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
