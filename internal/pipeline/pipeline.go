package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"binharness/internal/diag"
	"binharness/pkg/contract"
)

// - 单线程：Aggregate 同步遍历来源，无内部并发。
// - 持久化顺序：每条记录先追加到日志；全部完成后以最后一条覆盖快照。
// - 失败即停：任一运行出错不写快照，已追加的记录保持不变。

// Components 聚合运行所需的持久化组件。
type Components struct {
	// Log: 只追加日志（跨进程按路径互斥）。
	Log contract.Appender
	// Snapshot: "latest" 快照覆盖写。
	Snapshot contract.Writer
	// Terminal: 可选的终端提示；nil 时不输出。
	Terminal *diag.Terminal
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	NBins       int
	TopK        int
	MemberLimit int
	// IncludeCounts: 记录中是否携带完整占用向量。
	IncludeCounts bool

	Out     contract.ArtifactID
	Summary contract.ArtifactID

	// 规范化上下文；为空使用 contract 默认值。
	Script       string
	UnitType     string
	CanonVersion string

	// Now: 时钟（测试可注入）；nil 使用 time.Now。
	Now func() time.Time
	// OnProgress: 可选的进度回调（已路由单元数）。
	OnProgress func(units int)
}

// Run 依次执行 jobs：Aggregate → 追加日志行；全部成功后写快照（最后一条）。
// 无 job 时返回 ErrNothingProduced。返回已完成的全部记录。
func Run(ctx context.Context, comp Components, set Settings, jobs []Job, logger *diag.Logger) ([]contract.RunRecord, error) {
	if err := sanity(comp, set); err != nil {
		return nil, fmt.Errorf("sanity: %w", err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no runs scheduled", contract.ErrNothingProduced)
	}

	runStart := time.Now()
	comp.Terminal.RunStart(string(jobs[0].Mode), set.NBins, len(jobs))
	rtimer := logger.StartWithKV("pipeline", "run", "", map[string]string{
		"mode":   string(jobs[0].Mode),
		"n_bins": strconv.Itoa(set.NBins),
		"runs":   strconv.Itoa(len(jobs)),
	})
	ok := false
	defer func() { comp.Terminal.RunFinish(ok, time.Since(runStart)) }()

	if comp.Terminal != nil && set.OnProgress == nil {
		set.OnProgress = comp.Terminal.Progress
	}

	recs := make([]contract.RunRecord, 0, len(jobs))
	for _, job := range jobs {
		rec, err := runOne(ctx, comp, set, job, logger)
		if err != nil {
			logger.ErrorWithKV("pipeline", string(diag.Classify(err)), "run failed", &runStart, job.DatasetID,
				map[string]string{"error": err.Error()})
			return recs, err
		}
		recs = append(recs, rec)
	}

	last := recs[len(recs)-1]
	b, err := EncodeSnapshot(last)
	if err != nil {
		return recs, fmt.Errorf("encode snapshot: %w", err)
	}
	wtimer := logger.StartWith("writer", "snapshot", last.DatasetID)
	if err := comp.Snapshot.Write(ctx, set.Summary, bytes.NewReader(b)); err != nil {
		logger.ErrorWithKV("writer", string(diag.Classify(err)), "snapshot failed", nil, last.DatasetID,
			map[string]string{"path": string(set.Summary)})
		return recs, fmt.Errorf("writer write: %w", err)
	}
	wtimer.Finish("snapshot", int64(len(b)))

	ok = true
	rtimer.Finish("run", int64(len(recs)))
	return recs, nil
}

func runOne(ctx context.Context, comp Components, set Settings, job Job, logger *diag.Logger) (contract.RunRecord, error) {
	comp.Terminal.DatasetStart(job.DatasetID)
	t0 := time.Now()
	units := 0
	ok := false
	defer func() { comp.Terminal.DatasetFinish(ok, units, time.Since(t0)) }()

	atimer := logger.StartWithKV("aggregator", "aggregate", job.DatasetID, map[string]string{"mode": string(job.Mode)})
	rec, err := Aggregate(ctx, job, set)
	if err != nil {
		return contract.RunRecord{}, fmt.Errorf("aggregate: %w", err)
	}
	units = rec.N
	atimer.FinishWithKV("aggregate", int64(rec.N), map[string]string{"run_id": rec.RunID})

	line, err := EncodeLine(rec)
	if err != nil {
		return contract.RunRecord{}, fmt.Errorf("encode line: %w", err)
	}
	ltimer := logger.StartWith("appender", "append", job.DatasetID)
	if err := comp.Log.Append(ctx, set.Out, line); err != nil {
		logger.ErrorWithKV("appender", string(diag.Classify(err)), "append failed", nil, job.DatasetID,
			map[string]string{"path": string(set.Out)})
		return contract.RunRecord{}, fmt.Errorf("appender append: %w", err)
	}
	ltimer.Finish("append", int64(len(line)))
	ok = true
	return rec, nil
}

// EncodeLine 输出单行紧凑 JSON（不含结尾换行；非 ASCII 原样保留）。
func EncodeLine(rec contract.RunRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EncodeSnapshot 输出两空格缩进的 JSON 文档（以换行结尾）。
func EncodeSnapshot(rec contract.RunRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sanity(comp Components, set Settings) error {
	if comp.Log == nil || comp.Snapshot == nil {
		return errors.New("components not assembled")
	}
	if set.Out == "" || set.Summary == "" {
		return fmt.Errorf("%w: empty out/summary", contract.ErrPathInvalid)
	}
	return checkSettings(set)
}
