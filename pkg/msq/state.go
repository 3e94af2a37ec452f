// Package msq 为幻方拼图盘面状态提供规范字符串与身份路由。
package msq

import (
	"fmt"
	"strconv"
	"strings"

	"binharness/pkg/canon"
	"binharness/pkg/contract"
	"binharness/pkg/route"
)

const (
	// Prefix 为盘面规范串前缀。
	Prefix = "MSQ"
	// Blank 为空格子的占位字符。
	Blank = "_"
)

// State: 盘面状态（行优先）。Tiles 中 nil 表示空格；Locks 与 Tiles 等长。
type State struct {
	Size      int
	TargetSum int
	RulesetID string
	Tiles     []*int
	Locks     []bool
}

// New 构造并校验盘面：tiles/locks 长度必须等于 size²。
func New(size, targetSum int, rulesetID string, tiles []*int, locks []bool) (State, error) {
	s := State{Size: size, TargetSum: targetSum, RulesetID: rulesetID, Tiles: tiles, Locks: locks}
	if err := s.Validate(); err != nil {
		return State{}, err
	}
	return s, nil
}

// Validate 检查长度不变量。
func (s State) Validate() error {
	if s.Size <= 0 {
		return fmt.Errorf("%w: size must be > 0, got %d", contract.ErrInvalidArgument, s.Size)
	}
	n := s.Size * s.Size
	if len(s.Tiles) != n {
		return fmt.Errorf("%w: tiles must have length %d, got %d", contract.ErrLengthMismatch, n, len(s.Tiles))
	}
	if len(s.Locks) != n {
		return fmt.Errorf("%w: locks must have length %d, got %d", contract.ErrLengthMismatch, n, len(s.Locks))
	}
	return nil
}

// CanonicalString 形如 MSQ|v1|N=3|T=15|R=RS-MSQ-0001|G=8,1,6,3,5,7,4,9,2|L=000000000，
// 整串经 NFKC 归一。
func CanonicalString(s State, version string) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	g := make([]string, len(s.Tiles))
	for i, t := range s.Tiles {
		if t == nil {
			g[i] = Blank
			continue
		}
		g[i] = strconv.Itoa(*t)
	}
	var l strings.Builder
	l.Grow(len(s.Locks))
	for _, b := range s.Locks {
		if b {
			l.WriteByte('1')
		} else {
			l.WriteByte('0')
		}
	}
	raw := fmt.Sprintf("%s|%s|N=%d|T=%d|R=%s|G=%s|L=%s",
		Prefix, version, s.Size, s.TargetSum, s.RulesetID, strings.Join(g, ","), l.String())
	return canon.Normalize(raw), nil
}

// IDAndBin 返回盘面的状态 ID 与 bin；version 为空时取默认规范版本。
func IDAndBin(s State, version string, nBins int) (string, int, error) {
	if version == "" {
		version = contract.DefaultCanonVersion
	}
	c, err := CanonicalString(s, version)
	if err != nil {
		return "", 0, err
	}
	return route.Route(c, nBins)
}
