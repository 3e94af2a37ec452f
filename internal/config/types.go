package config

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/YAML 均使用 snake_case；未知字段在解析期失败。
// 指针字段区分“未设置”与显式零值，供 Merge 判定是否覆盖。
type Config struct {
	NBins         *int   `json:"n_bins,omitempty" yaml:"n_bins,omitempty"`
	TopK          *int   `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	MemberLimit   *int   `json:"member_limit,omitempty" yaml:"member_limit,omitempty"`
	Out           string `json:"out" yaml:"out"`
	Summary       string `json:"summary" yaml:"summary"`
	IncludeCounts *bool  `json:"include_counts,omitempty" yaml:"include_counts,omitempty"`
	// DatasetID 覆盖各模式默认数据集标识；random 模式下作为前缀。
	DatasetID string `json:"dataset_id" yaml:"dataset_id"`

	Logging Logging `json:"logging" yaml:"logging"`
	Writer  Writer  `json:"writer" yaml:"writer"`
}

// Logging: 日志等级与目录；轮转策略为固定默认。
type Logging struct {
	Level string `json:"level" yaml:"level"`
	Dir   string `json:"dir" yaml:"dir"`
}

// Writer: 快照写出选项（键与 writer/filesystem.Options 一致，原样传入工厂）。
type Writer struct {
	Atomic   *bool  `json:"atomic,omitempty" yaml:"atomic,omitempty"`
	PermFile uint32 `json:"perm_file,omitempty" yaml:"perm_file,omitempty"`
	PermDir  uint32 `json:"perm_dir,omitempty" yaml:"perm_dir,omitempty"`
	BufSize  int    `json:"buf_size,omitempty" yaml:"buf_size,omitempty"`
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func derefBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
