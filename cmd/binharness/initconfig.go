package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "binharness/internal/config"
)

func newInitConfigCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "init-config [dir]",
		Short: "Write a default binharness.json (or .yaml) and .env template; never overwrites",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.started = true
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = strings.TrimSpace(args[0])
			}
			var name string
			switch strings.ToLower(format) {
			case "json":
				name = "binharness.json"
			case "yaml", "yml":
				name = "binharness.yaml"
			default:
				return configErr("--format must be json or yaml, got %q", format)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			cfgPath := filepath.Join(dir, name)
			if err := writeConfig(cfgPath, cfgpkg.DefaultTemplateConfig()); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Wrote config: %s\n", cfgPath)
			// .env 模板失败不影响主流程
			envPath := filepath.Join(dir, ".env")
			if err := writeDotEnv(envPath); err != nil {
				fmt.Fprintf(a.stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "模板格式 json|yaml")
	return cmd
}

// writeConfig 按扩展名编码；不覆盖已存在文件。
func writeConfig(path string, c cfgpkg.Config) error {
	var (
		b   []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(c)
	default:
		b, err = json.MarshalIndent(c, "", "  ")
		b = append(b, '\n')
	}
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(b)
	return err
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
// 仅创建文件；不覆盖，不合并。
func writeDotEnv(path string) error {
	var b strings.Builder
	b.WriteString("# binharness .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件 > 默认值\n")
	b.WriteString("# 空值表示未设置。\n\n")

	b.WriteString("# 配置来源（二选一）\n")
	b.WriteString(envConfigFile + "=\n")
	b.WriteString(envConfigJSON + "=\n\n")

	b.WriteString("# 运行参数覆盖\n")
	for _, k := range []string{"N_BINS", "TOP_K", "MEMBER_LIMIT", "OUT", "SUMMARY", "INCLUDE_COUNTS", "DATASET_ID", "WRITER_ATOMIC"} {
		b.WriteString(cfgpkg.EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 日志\n")
	b.WriteString(cfgpkg.EnvPrefix + "LOG_LEVEL=\n")
	b.WriteString(cfgpkg.EnvPrefix + "LOG_DIR=\n")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}
