package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "binharness/internal/config"
	"binharness/internal/diag"
	"binharness/pkg/contract"
	"binharness/pkg/registry"
)

// 配置来源环境变量。
const (
	envConfigFile = cfgpkg.EnvPrefix + "CONFIG_FILE"
	envConfigJSON = cfgpkg.EnvPrefix + "CONFIG_JSON"
)

// defaultConfigNames: 未显式指定时按序探测的工作目录配置文件。
var defaultConfigNames = []string{"binharness.json", "binharness.yaml", "binharness.yml"}

// commonFlags: 各子命令共享的持久旗标。
type commonFlags struct {
	config        string
	out           string
	summary       string
	includeCounts bool
	datasetID     string
	nBins         int
	topK          int
	memberLimit   int
	status        bool
	logLevel      string
	logDir        string
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "binharness",
		Short: "Deterministic 384-bin hash-routing audit harness",
		Long: `binharness routes text units into a fixed number of bins via SHA-256
and records distribution diagnostics (entropy, Gini, empty/collision bins, top bins)
as append-only JSONL run records plus a "latest" summary snapshot.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// 未给子命令属于用法错误
		RunE: func(*cobra.Command, []string) error {
			return configErr("a subcommand is required: %s, state or init-config (see --help)",
				strings.Join(registry.Modes(), ", "))
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", contract.ErrConfigInvalid, err)
	})

	pf := root.PersistentFlags()
	c := &a.common
	pf.StringVar(&c.config, "config", "", "配置文件（.json/.yaml/.yml）；缺省读取 "+envConfigFile+" 或 ./binharness.json")
	pf.StringVar(&c.out, "out", cfgpkg.DefaultOut, "JSONL 运行记录路径（追加）")
	pf.StringVar(&c.summary, "summary", cfgpkg.DefaultSummary, "latest 快照路径（覆盖）")
	pf.BoolVar(&c.includeCounts, "include-counts", false, "记录中包含完整 bin_counts")
	pf.StringVar(&c.datasetID, "dataset-id", "", "数据集标识（random 模式为前缀；file 模式必填）")
	pf.IntVar(&c.nBins, "n-bins", contract.DefaultNBins, "bin 数（>0）")
	pf.IntVar(&c.topK, "top-k", contract.DefaultTopK, "top_bins 条数（>=1）")
	pf.IntVar(&c.memberLimit, "member-limit", contract.DefaultMemberLimit, "每个 bin 采样成员上限（>=0）")
	pf.BoolVar(&c.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	pf.StringVar(&c.logLevel, "log-level", "", "日志等级 debug|info|warn|error")
	pf.StringVar(&c.logDir, "log-dir", "", "日志目录（默认 "+diag.DefaultLogDir+"）")

	root.AddCommand(
		newRandomCmd(a),
		newExhaustiveCmd(a),
		newFileCmd(a),
		newStateCmd(a),
		newInitConfigCmd(a),
	)
	return root
}

// resolveConfig 合并 Defaults → 文件/JSON → ENV → CLI（仅显式设置的旗标）。
func (a *app) resolveConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()

	path := strings.TrimSpace(a.common.config)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(envConfigFile))
	}
	if path == "" && os.Getenv(envConfigJSON) == "" {
		for _, name := range defaultConfigNames {
			if st, err := os.Stat(name); err == nil && !st.IsDir() {
				path = name
				break
			}
		}
	}
	switch {
	case path != "":
		base, err := cfgpkg.LoadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, asConfigErr(err))
		}
		cfg = cfgpkg.Merge(cfg, base)
	case os.Getenv(envConfigJSON) != "":
		base, err := cfgpkg.LoadJSON("", []byte(os.Getenv(envConfigJSON)))
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", envConfigJSON, err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, err
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	overCLI, err := a.cliOverlay(cmd)
	if err != nil {
		return cfg, err
	}
	cfg = cfgpkg.Merge(cfg, overCLI)
	if err := cfgpkg.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// cliOverlay 仅收集显式出现在命令行上的旗标，避免默认值覆盖文件/ENV。
func (a *app) cliOverlay(cmd *cobra.Command) (cfgpkg.Config, error) {
	var over cfgpkg.Config
	fs := cmd.Flags()
	c := a.common
	if fs.Changed("n-bins") {
		over.NBins = &c.nBins
	}
	if fs.Changed("top-k") {
		over.TopK = &c.topK
	}
	if fs.Changed("member-limit") {
		over.MemberLimit = &c.memberLimit
	}
	// 显式空路径直接报错，而不是回落默认
	if fs.Changed("out") {
		if strings.TrimSpace(c.out) == "" {
			return over, fmt.Errorf("%w: --out is empty", contract.ErrConfigInvalid)
		}
		over.Out = c.out
	}
	if fs.Changed("summary") {
		if strings.TrimSpace(c.summary) == "" {
			return over, fmt.Errorf("%w: --summary is empty", contract.ErrConfigInvalid)
		}
		over.Summary = c.summary
	}
	if fs.Changed("include-counts") {
		over.IncludeCounts = &c.includeCounts
	}
	if fs.Changed("dataset-id") {
		over.DatasetID = c.datasetID
	}
	if fs.Changed("log-level") {
		over.Logging.Level = c.logLevel
	}
	if fs.Changed("log-dir") {
		over.Logging.Dir = c.logDir
	}
	return over, nil
}

// asConfigErr: 配置文件不可读也属于配置错误。
func asConfigErr(err error) error {
	if err == nil || errors.Is(err, contract.ErrConfigInvalid) {
		return err
	}
	return fmt.Errorf("%w: %v", contract.ErrConfigInvalid, err)
}
