package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "binharness/internal/config"
	"binharness/internal/diag"
	"binharness/internal/pipeline"
	"binharness/pkg/contract"
	"binharness/pkg/registry"
	rfs "binharness/plugins/reader/filesystem"
)

// 各模式的默认数据集标识。
const (
	defaultRandomPrefix      = "RANDOM_CONTROL"
	defaultExhaustiveDataset = "HEB_ALL_TRIPLETS_22C3"
)

type jobBuilder func(ctx context.Context, cfg cfgpkg.Config) ([]pipeline.Job, error)

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", contract.ErrConfigInvalid, fmt.Sprintf(format, args...))
}

func newRandomCmd(a *app) *cobra.Command {
	var (
		alphabetFile string
		n            int
		runs         int
		seed         int64
		delimiter    string
	)
	cmd := &cobra.Command{
		Use:   "random",
		Short: "Random control runs: N seeded 3-symbol draws per run",
		Example: `  binharness random --alphabet-file alphabet.txt --n 1540 --runs 5 --seed 0
  binharness random --alphabet-file alphabet.txt --n 1540 --dataset-id CTRL --include-counts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.started = true
			if alphabetFile == "" {
				return configErr("--alphabet-file is required")
			}
			if !cmd.Flags().Changed("n") {
				return configErr("--n is required")
			}
			if runs <= 0 {
				return configErr("--runs must be > 0, got %d", runs)
			}
			return a.execute(cmd, contract.ModeRandom, func(ctx context.Context, cfg cfgpkg.Config) ([]pipeline.Job, error) {
				alphabet, err := rfs.New(nil).LoadAlphabet(ctx, alphabetFile)
				if err != nil {
					return nil, fmt.Errorf("alphabet %s: %w", alphabetFile, err)
				}
				prefix := cfg.DatasetID
				if prefix == "" {
					prefix = defaultRandomPrefix
				}
				jobs := make([]pipeline.Job, 0, runs)
				for i := 0; i < runs; i++ {
					runSeed := seed + int64(i)
					raw, err := json.Marshal(registry.RandomOptions{Alphabet: alphabet, N: n, Seed: runSeed, Delimiter: delimiter})
					if err != nil {
						return nil, err
					}
					src, err := registry.Source[contract.ModeRandom](ctx, raw)
					if err != nil {
						return nil, err
					}
					jobs = append(jobs, pipeline.Job{
						DatasetID: fmt.Sprintf("%s_N%d_RUN%d", prefix, n, i+1),
						Mode:      contract.ModeRandom,
						Source:    src,
						Seed:      &runSeed,
					})
				}
				return jobs, nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&alphabetFile, "alphabet-file", "", "字母表文件（每行一个符号；必填）")
	f.IntVar(&n, "n", 0, "每次运行抽样的三元组数（>=0；必填）")
	f.IntVar(&runs, "runs", 1, "运行次数（>0）；第 i 次使用 seed+i")
	f.Int64Var(&seed, "seed", 0, "起始种子")
	f.StringVar(&delimiter, "delimiter", "", "三元组内分隔符（默认 -）")
	return cmd
}

func newExhaustiveCmd(a *app) *cobra.Command {
	var (
		alphabetFile string
		delimiter    string
	)
	cmd := &cobra.Command{
		Use:     "exhaustive",
		Short:   "Route every 3-combination of the alphabet (alphabet order, no sorting)",
		Example: `  binharness exhaustive --alphabet-file alphabet.txt --n-bins 384`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.started = true
			if alphabetFile == "" {
				return configErr("--alphabet-file is required")
			}
			return a.execute(cmd, contract.ModeExhaustive, func(ctx context.Context, cfg cfgpkg.Config) ([]pipeline.Job, error) {
				raw, err := json.Marshal(registry.ExhaustiveOptions{AlphabetFile: alphabetFile, Delimiter: delimiter})
				if err != nil {
					return nil, err
				}
				src, err := registry.Source[contract.ModeExhaustive](ctx, raw)
				if err != nil {
					return nil, fmt.Errorf("alphabet %s: %w", alphabetFile, err)
				}
				id := cfg.DatasetID
				if id == "" {
					id = defaultExhaustiveDataset
				}
				return []pipeline.Job{{DatasetID: id, Mode: contract.ModeExhaustive, Source: src}}, nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&alphabetFile, "alphabet-file", "", "字母表文件（每行一个符号；必填）")
	f.StringVar(&delimiter, "delimiter", "", "三元组内分隔符（默认 -）")
	return cmd
}

func newFileCmd(a *app) *cobra.Command {
	var (
		inputs   []string
		excludes []string
	)
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Route each non-empty normalized line of the input(s) verbatim",
		Example: `  binharness file --input units.txt --dataset-id CORPUS_A
  cat units.txt | binharness file --input - --dataset-id CORPUS_A`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.started = true
			if len(inputs) == 0 {
				return configErr("--input is required")
			}
			return a.execute(cmd, contract.ModeFile, func(ctx context.Context, cfg cfgpkg.Config) ([]pipeline.Job, error) {
				if cfg.DatasetID == "" {
					return nil, configErr("--dataset-id is required for file mode")
				}
				raw, err := json.Marshal(registry.FileOptions{Inputs: inputs, Reader: rfs.Options{ExcludeDirNames: excludes}})
				if err != nil {
					return nil, err
				}
				src, err := registry.Source[contract.ModeFile](ctx, raw)
				if err != nil {
					return nil, err
				}
				return []pipeline.Job{{DatasetID: cfg.DatasetID, Mode: contract.ModeFile, Source: src}}, nil
			})
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&inputs, "input", nil, "输入文件/目录（可重复；\"-\" 表示 STDIN，不能与其他输入混用）")
	f.StringSliceVar(&excludes, "exclude-dir", []string{".git"}, "递归目录时跳过的目录名")
	return cmd
}

// execute: 配置 → 日志器（首次写入才建文件）→ 装配 → 构造 jobs → 预检 → 运行 → stdout 摘要。
// jobs 在装配之后构造，配置错误先于任何输入读取被检出；此前不写任何文件。
func (a *app) execute(cmd *cobra.Command, mode contract.Mode, build jobBuilder) error {
	ctx := cmd.Context()
	cfg, err := a.resolveConfig(cmd)
	if err != nil {
		return err
	}
	a.logger = diag.NewLogger(a.corrID, cfg.Logging.Level, cfg.Logging.Dir)
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return err
	}
	jobs, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	if err := preflightCheckOutputs(cfg.Out, cfg.Summary); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	a.logger.DebugStart("config", "effective", cfg.DatasetID, map[string]string{
		"mode":           string(mode),
		"n_bins":         strconv.Itoa(*cfg.NBins),
		"top_k":          strconv.Itoa(*cfg.TopK),
		"out":            cfg.Out,
		"summary":        cfg.Summary,
		"include_counts": strconv.FormatBool(cfg.IncludeCounts != nil && *cfg.IncludeCounts),
	})
	comp.Terminal = diag.NewTerminal(a.stderr, a.common.status)

	recs, err := pipelineRun(ctx, comp, set, jobs, a.logger)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return contract.ErrNothingProduced
	}
	fmt.Fprintf(a.stdout, "Wrote JSONL: %s\n", cfg.Out)
	fmt.Fprintf(a.stdout, "Wrote summary: %s\n", cfg.Summary)
	return writeJSONLine(a.stdout, recs[len(recs)-1].Digest())
}

// writeJSONLine 输出单行 JSON（非 ASCII 原样保留）。
func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
