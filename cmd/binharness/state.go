package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"binharness/pkg/contract"
	"binharness/pkg/msq"
)

// stateResult: state 子命令的 stdout 输出。
type stateResult struct {
	StateID string `json:"state_id"`
	Bin     int    `json:"bin"`
}

func newStateCmd(a *app) *cobra.Command {
	var (
		size      int
		targetSum int
		ruleset   string
		tiles     string
		locks     string
		version   string
		showCanon bool
	)
	cmd := &cobra.Command{
		Use:     "state",
		Short:   "Print the identity and bin of a magic-square board state",
		Example: `  binharness state --size 3 --target-sum 15 --ruleset RS-MSQ-0001 --tiles 8,1,6,3,5,7,4,9,2 --locks 000000000`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.started = true
			if tiles == "" {
				return configErr("--tiles is required")
			}
			cfg, err := a.resolveConfig(cmd)
			if err != nil {
				return err
			}
			tv, err := msq.ParseTiles(tiles)
			if err != nil {
				return err
			}
			lv, err := msq.ParseLocks(locks, len(tv))
			if err != nil {
				return err
			}
			st, err := msq.New(size, targetSum, ruleset, tv, lv)
			if err != nil {
				return err
			}
			id, bin, err := msq.IDAndBin(st, version, *cfg.NBins)
			if err != nil {
				return err
			}
			if showCanon {
				c, err := msq.CanonicalString(st, version)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stderr, c)
			}
			return writeJSONLine(a.stdout, stateResult{StateID: id, Bin: bin})
		},
	}
	f := cmd.Flags()
	f.IntVar(&size, "size", 3, "盘面边长（>0）")
	f.IntVar(&targetSum, "target-sum", 15, "行/列/对角线目标和")
	f.StringVar(&ruleset, "ruleset", "RS-MSQ-0001", "规则集标识")
	f.StringVar(&tiles, "tiles", "", "行优先格子值，逗号分隔；\"_\" 表示空格（必填）")
	f.StringVar(&locks, "locks", "", "0/1 锁定串，与格子等长（缺省全 0）")
	f.StringVar(&version, "canon-version", contract.DefaultCanonVersion, "规范串版本")
	f.BoolVar(&showCanon, "show-canonical", false, "在 stderr 打印规范串")
	return cmd
}
