package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"binharness/pkg/canon"
	"binharness/pkg/contract"
	"binharness/pkg/route"
	"binharness/pkg/stats"
)

// CreatedAtLayout: created_at 的 ISO-8601 UTC 格式（微秒精度）。
const CreatedAtLayout = "2006-01-02T15:04:05.000000Z07:00"

// progressEvery: 每路由多少单元回调一次进度。
const progressEvery = 1024

// Job 描述一次路由：数据集、模式与 payload 来源。
type Job struct {
	DatasetID string
	Mode      contract.Mode
	Source    contract.Source
	// Seed 仅 random 模式设置，原样写入记录。
	Seed *int64
}

// Aggregate 对 job 做一次完整遍历：canon → route → 计数/成员采样，
// 遍历结束后在最终占用向量上统计并组装记录。不做持久化。
// 占用向量与成员表为本次调用的局部状态。
func Aggregate(ctx context.Context, job Job, set Settings) (contract.RunRecord, error) {
	set = set.withDefaults()
	if err := checkSettings(set); err != nil {
		return contract.RunRecord{}, err
	}
	if job.Source == nil {
		return contract.RunRecord{}, fmt.Errorf("%w: nil source", contract.ErrInvalidArgument)
	}
	if !job.Mode.Valid() {
		return contract.RunRecord{}, fmt.Errorf("%w: mode %q", contract.ErrInvalidArgument, job.Mode)
	}

	counts := make([]int, set.NBins)
	members := make(map[int][]string)
	n := 0
	err := job.Source.Iterate(ctx, func(payload string) error {
		c := canon.String(job.DatasetID, set.Script, set.UnitType, payload, set.CanonVersion)
		id, bin, err := route.Route(c, set.NBins)
		if err != nil {
			return err
		}
		counts[bin]++
		n++
		if len(members[bin]) < set.MemberLimit {
			members[bin] = append(members[bin], id)
		}
		if n%progressEvery == 0 && set.OnProgress != nil {
			set.OnProgress(n)
		}
		return nil
	})
	if err != nil {
		return contract.RunRecord{}, fmt.Errorf("iterate %s: %w", job.DatasetID, err)
	}

	sum := stats.Summarize(counts, set.TopK)
	top := make([]contract.TopBin, 0, len(sum.Top))
	for _, r := range sum.Top {
		ids := members[r.Bin]
		if ids == nil {
			ids = []string{}
		}
		top = append(top, contract.TopBin{Bin: r.Bin, Count: r.Count, MemberIDs: ids})
	}

	createdAt := set.Now().UTC().Format(CreatedAtLayout)
	rec := contract.RunRecord{
		SchemaVersion: contract.SchemaVersion,
		RunID:         RunID(job.DatasetID, job.Mode, createdAt),
		CreatedAt:     createdAt,
		DatasetID:     job.DatasetID,
		Mode:          job.Mode,
		NBins:         set.NBins,
		N:             n,
		EmptyBins:     sum.EmptyBins,
		EmptyRatio:    sum.EmptyRatio,
		Entropy:       sum.Entropy,
		Gini:          sum.Gini,
		MaxLoad:       sum.MaxLoad,
		CollisionBins: sum.CollisionBins,
		TopBins:       top,
		Script:        set.Script,
		UnitType:      set.UnitType,
		CanonVersion:  set.CanonVersion,
	}
	if set.IncludeCounts {
		rec.BinCounts = counts
	}
	if job.Seed != nil {
		s := *job.Seed
		rec.Seed = &s
	}
	return rec, nil
}

// RunID = 前缀 + sha256(dataset|mode|created_at) 前 12 位大写十六进制。
func RunID(datasetID string, mode contract.Mode, createdAt string) string {
	h := route.SHA256Hex(datasetID + "|" + string(mode) + "|" + createdAt)
	return contract.RunIDPrefix + strings.ToUpper(h[:12])
}

func (s Settings) withDefaults() Settings {
	if s.Script == "" {
		s.Script = contract.DefaultScript
	}
	if s.UnitType == "" {
		s.UnitType = contract.DefaultUnitType
	}
	if s.CanonVersion == "" {
		s.CanonVersion = contract.DefaultCanonVersion
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

func checkSettings(s Settings) error {
	if s.NBins <= 0 {
		return fmt.Errorf("%w: n_bins must be > 0, got %d", contract.ErrInvalidArgument, s.NBins)
	}
	if s.TopK < 0 {
		return fmt.Errorf("%w: top_k must be >= 0, got %d", contract.ErrInvalidArgument, s.TopK)
	}
	if s.MemberLimit < 0 {
		return fmt.Errorf("%w: member_limit must be >= 0, got %d", contract.ErrInvalidArgument, s.MemberLimit)
	}
	return nil
}
