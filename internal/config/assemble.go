package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"binharness/internal/pipeline"
	"binharness/pkg/contract"
	"binharness/pkg/registry"
)

// 组件实现名（注册表键）。
const (
	SnapshotWriter = "fs"
	LogAppender    = "jsonl"
)

// Validate 对最小必要边界做静态校验；所有错误包装 ErrConfigInvalid。
func Validate(cfg Config) error {
	if cfg.NBins == nil || *cfg.NBins <= 0 {
		return invalid("n_bins must be > 0, got %d", derefInt(cfg.NBins, 0))
	}
	if cfg.TopK == nil || *cfg.TopK < 1 {
		return invalid("top_k must be >= 1, got %d", derefInt(cfg.TopK, 0))
	}
	if cfg.MemberLimit != nil && *cfg.MemberLimit < 0 {
		return invalid("member_limit must be >= 0, got %d", *cfg.MemberLimit)
	}
	if _, err := contract.ParseArtifactID(cfg.Out); err != nil {
		return invalid("out path %q invalid", cfg.Out)
	}
	if _, err := contract.ParseArtifactID(cfg.Summary); err != nil {
		return invalid("summary path %q invalid", cfg.Summary)
	}
	if contract.NormalizeArtifactID(cfg.Out) == contract.NormalizeArtifactID(cfg.Summary) {
		return invalid("out and summary must differ")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return invalid("logging.level %q unknown", cfg.Logging.Level)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", contract.ErrConfigInvalid, fmt.Sprintf(format, args...))
}

// Assemble 构造持久化组件与运行设置。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	wraw, err := json.Marshal(cfg.Writer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	snap, err := registry.Writer[SnapshotWriter](wraw)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	// 追加日志沿用快照的文件/目录权限
	araw, err := json.Marshal(struct {
		PermFile uint32 `json:"perm_file,omitempty"`
		PermDir  uint32 `json:"perm_dir,omitempty"`
	}{cfg.Writer.PermFile, cfg.Writer.PermDir})
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	app, err := registry.Appender[LogAppender](araw)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	comp := pipeline.Components{Log: app, Snapshot: snap}
	set := pipeline.Settings{
		NBins:         *cfg.NBins,
		TopK:          *cfg.TopK,
		MemberLimit:   derefInt(cfg.MemberLimit, contract.DefaultMemberLimit),
		IncludeCounts: derefBool(cfg.IncludeCounts, false),
		Out:           contract.NormalizeArtifactID(strings.TrimSpace(cfg.Out)),
		Summary:       contract.NormalizeArtifactID(strings.TrimSpace(cfg.Summary)),
	}
	return comp, set, nil
}
