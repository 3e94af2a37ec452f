package config

// DefaultTemplateConfig 返回一个完整的默认配置模板：
// 全部键都出现，值为运行默认值，便于在此基础上修改。
func DefaultTemplateConfig() Config {
	cfg := Defaults()
	cfg.DatasetID = ""
	cfg.Writer.PermFile = 0o644
	cfg.Writer.PermDir = 0o755
	cfg.Writer.BufSize = 64 * 1024
	return cfg
}
