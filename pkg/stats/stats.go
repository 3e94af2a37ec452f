// Package stats 对占用向量做描述性统计（点估计，无推断）。
package stats

import (
	"math"
	"slices"
	"sort"
)

// Entropy 返回 -Σ p_i·ln(p_i)；零计数 bin 贡献 0，总量为 0 时返回 0。
func Entropy(counts []int) float64 {
	total := sum(counts)
	if total == 0 {
		return 0
	}
	t := float64(total)
	h := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / t
		h -= p * math.Log(p)
	}
	return h
}

// Gini 基于升序排序后的闭式 Σ(2i-n+1)·x_i / (n·Σx)，i 从 0 计。
// n<2 或总量为 0 时返回 0。
func Gini(counts []int) float64 {
	n := len(counts)
	if n < 2 {
		return 0
	}
	total := sum(counts)
	if total == 0 {
		return 0
	}
	sorted := slices.Clone(counts)
	slices.Sort(sorted)
	var num float64
	for i, x := range sorted {
		num += float64(2*i-n+1) * float64(x)
	}
	return num / (float64(n) * float64(total))
}

// Ranked 是一个 (bin, count) 对。
type Ranked struct {
	Bin   int
	Count int
}

// TopK 按计数降序、bin 升序返回前 k 个。k<=0 返回空。
func TopK(counts []int, k int) []Ranked {
	if k <= 0 {
		return nil
	}
	items := make([]Ranked, len(counts))
	for i, c := range counts {
		items[i] = Ranked{Bin: i, Count: c}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Bin < items[j].Bin
	})
	if k < len(items) {
		items = items[:k]
	}
	return items
}

// Summary 汇总同一份最终占用向量上的全部统计量。
type Summary struct {
	Total         int
	EmptyBins     int
	EmptyRatio    float64
	MaxLoad       int
	CollisionBins int
	Entropy       float64
	Gini          float64
	Top           []Ranked
}

// Summarize 在单个快照 counts 上计算全部统计量。
func Summarize(counts []int, k int) Summary {
	s := Summary{Entropy: Entropy(counts), Gini: Gini(counts), Top: TopK(counts, k)}
	for _, c := range counts {
		s.Total += c
		if c == 0 {
			s.EmptyBins++
		}
		if c >= 2 {
			s.CollisionBins++
		}
		if c > s.MaxLoad {
			s.MaxLoad = c
		}
	}
	if len(counts) > 0 {
		s.EmptyRatio = float64(s.EmptyBins) / float64(len(counts))
	}
	return s
}

func sum(counts []int) int {
	t := 0
	for _, c := range counts {
		t += c
	}
	return t
}
