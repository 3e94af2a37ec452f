package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binharness/internal/diag"
	"binharness/pkg/canon"
	"binharness/pkg/contract"
	"binharness/pkg/route"
	"binharness/plugins/generator/exhaustive"
	"binharness/plugins/generator/random"
	wfs "binharness/plugins/writer/filesystem"
	"binharness/plugins/writer/jsonl"
)

// ---- 测试桩 ----

type recorder struct {
	calls     []string
	lines     [][]byte
	snapshot  []byte
	appendErr error
	writeErr  error
}

type stubAppender struct{ r *recorder }

func (a stubAppender) Append(_ context.Context, id contract.ArtifactID, line []byte) error {
	a.r.calls = append(a.r.calls, "append:"+string(id))
	if a.r.appendErr != nil {
		return a.r.appendErr
	}
	a.r.lines = append(a.r.lines, append([]byte(nil), line...))
	return nil
}

type stubWriter struct{ r *recorder }

func (w stubWriter) Write(_ context.Context, id contract.ArtifactID, rd io.Reader) error {
	w.r.calls = append(w.r.calls, "write:"+string(id))
	if w.r.writeErr != nil {
		return w.r.writeErr
	}
	b, err := io.ReadAll(rd)
	w.r.snapshot = b
	return err
}

func stubComponents() (Components, *recorder) {
	r := &recorder{}
	return Components{Log: stubAppender{r}, Snapshot: stubWriter{r}}, r
}

func fixedNow() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 6000, time.UTC) }

func testSettings() Settings {
	return Settings{
		NBins:       contract.DefaultNBins,
		TopK:        contract.DefaultTopK,
		MemberLimit: contract.DefaultMemberLimit,
		Out:         "runs.jsonl",
		Summary:     "latest.json",
		Now:         fixedNow,
	}
}

func payloads(ps ...string) contract.Source {
	return contract.SourceFunc(func(ctx context.Context, yield func(string) error) error {
		for _, p := range ps {
			if err := yield(p); err != nil {
				return err
			}
		}
		return nil
	})
}

func abcd(t *testing.T) contract.Source {
	t.Helper()
	e, err := exhaustive.New([]string{"a", "b", "c", "d"}, nil)
	require.NoError(t, err)
	return e
}

// ---- Aggregate ----

func TestAggregateExhaustiveFourSymbols(t *testing.T) {
	set := testSettings()
	set.IncludeCounts = true
	rec, err := Aggregate(context.Background(), Job{DatasetID: "DS", Mode: contract.ModeExhaustive, Source: abcd(t)}, set)
	require.NoError(t, err)

	want := make([]int, set.NBins)
	for _, p := range []string{"a-b-c", "a-b-d", "a-c-d", "b-c-d"} {
		_, bin, err := route.Route(canon.String("DS", contract.DefaultScript, contract.DefaultUnitType, p, contract.DefaultCanonVersion), set.NBins)
		require.NoError(t, err)
		want[bin]++
	}
	if diff := cmp.Diff(want, rec.BinCounts); diff != "" {
		t.Fatalf("bin_counts mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, rec.N)
	assert.Equal(t, contract.SchemaVersion, rec.SchemaVersion)
	assert.Equal(t, "2026-01-02T03:04:05.000006Z", rec.CreatedAt)
	assert.Equal(t, RunID("DS", contract.ModeExhaustive, rec.CreatedAt), rec.RunID)
	assert.Equal(t, contract.DefaultScript, rec.Script)
	assert.Equal(t, contract.DefaultUnitType, rec.UnitType)
	assert.Equal(t, contract.DefaultCanonVersion, rec.CanonVersion)
	assert.Nil(t, rec.Seed)
	assert.Len(t, rec.TopBins, set.TopK)

	members := 0
	for _, tb := range rec.TopBins {
		members += len(tb.MemberIDs)
		assert.Equal(t, tb.Count, len(tb.MemberIDs))
	}
	assert.Equal(t, 4, members)
}

func TestAggregateEmptyRun(t *testing.T) {
	set := testSettings()
	rec, err := Aggregate(context.Background(), Job{DatasetID: "EMPTY", Mode: contract.ModeFile, Source: payloads()}, set)
	require.NoError(t, err)

	assert.Equal(t, 0, rec.N)
	assert.Equal(t, set.NBins, rec.EmptyBins)
	assert.Equal(t, 1.0, rec.EmptyRatio)
	assert.Equal(t, 0.0, rec.Entropy)
	assert.Equal(t, 0.0, rec.Gini)
	assert.Equal(t, 0, rec.MaxLoad)
	assert.Equal(t, 0, rec.CollisionBins)
	require.Len(t, rec.TopBins, set.TopK)
	for i, tb := range rec.TopBins {
		assert.Equal(t, i, tb.Bin, "ties break by ascending bin")
		assert.NotNil(t, tb.MemberIDs)
	}

	line, err := EncodeLine(rec)
	require.NoError(t, err)
	assert.Contains(t, string(line), `"member_ids":[]`)
	assert.NotContains(t, string(line), "bin_counts")
	assert.NotContains(t, string(line), "seed")
}

func TestAggregateMemberLimit(t *testing.T) {
	ps := make([]string, 30)
	for i := range ps {
		ps[i] = fmt.Sprintf("u%02d", i)
	}
	set := testSettings()
	set.NBins = 1
	set.TopK = 3

	rec, err := Aggregate(context.Background(), Job{DatasetID: "CAP", Mode: contract.ModeFile, Source: payloads(ps...)}, set)
	require.NoError(t, err)
	require.Len(t, rec.TopBins, 1)
	assert.Equal(t, 30, rec.TopBins[0].Count)
	assert.Len(t, rec.TopBins[0].MemberIDs, contract.DefaultMemberLimit)
	assert.Equal(t, 30, rec.MaxLoad)
	assert.Equal(t, 1, rec.CollisionBins)

	set.MemberLimit = 0
	rec, err = Aggregate(context.Background(), Job{DatasetID: "CAP", Mode: contract.ModeFile, Source: payloads(ps...)}, set)
	require.NoError(t, err)
	assert.Empty(t, rec.TopBins[0].MemberIDs)
}

func TestAggregateSeedCopied(t *testing.T) {
	r, err := random.New([]string{"a", "b", "c", "d", "e"}, 50, 7, nil)
	require.NoError(t, err)
	seed := r.Seed()
	rec, err := Aggregate(context.Background(), Job{DatasetID: "R", Mode: contract.ModeRandom, Source: r, Seed: &seed}, testSettings())
	require.NoError(t, err)
	require.NotNil(t, rec.Seed)
	assert.Equal(t, int64(7), *rec.Seed)
	seed = 99
	assert.Equal(t, int64(7), *rec.Seed)
	assert.Equal(t, 50, rec.N)
}

func TestAggregateDeterministic(t *testing.T) {
	job := func() Job {
		r, err := random.New([]string{"א", "ב", "ג", "ד", "ה", "ו"}, 200, 3, nil)
		require.NoError(t, err)
		return Job{DatasetID: "R", Mode: contract.ModeRandom, Source: r}
	}
	a, err := Aggregate(context.Background(), job(), testSettings())
	require.NoError(t, err)
	b, err := Aggregate(context.Background(), job(), testSettings())
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("records differ (-a +b):\n%s", diff)
	}
}

func TestAggregateInvalid(t *testing.T) {
	set := testSettings()
	set.NBins = 0
	_, err := Aggregate(context.Background(), Job{DatasetID: "X", Mode: contract.ModeFile, Source: payloads()}, set)
	assert.ErrorIs(t, err, contract.ErrInvalidArgument)

	_, err = Aggregate(context.Background(), Job{DatasetID: "X", Mode: "bogus", Source: payloads()}, testSettings())
	assert.ErrorIs(t, err, contract.ErrInvalidArgument)

	_, err = Aggregate(context.Background(), Job{DatasetID: "X", Mode: contract.ModeFile}, testSettings())
	assert.ErrorIs(t, err, contract.ErrInvalidArgument)
}

func TestAggregateSourceError(t *testing.T) {
	boom := errors.New("boom")
	src := contract.SourceFunc(func(ctx context.Context, yield func(string) error) error {
		if err := yield("a"); err != nil {
			return err
		}
		return boom
	})
	_, err := Aggregate(context.Background(), Job{DatasetID: "X", Mode: contract.ModeFile, Source: src}, testSettings())
	assert.ErrorIs(t, err, boom)
}

func TestAggregateProgress(t *testing.T) {
	ps := make([]string, 2*progressEvery+5)
	for i := range ps {
		ps[i] = fmt.Sprint(i)
	}
	var seen []int
	set := testSettings()
	set.OnProgress = func(n int) { seen = append(seen, n) }
	_, err := Aggregate(context.Background(), Job{DatasetID: "P", Mode: contract.ModeFile, Source: payloads(ps...)}, set)
	require.NoError(t, err)
	assert.Equal(t, []int{progressEvery, 2 * progressEvery}, seen)
}

func TestRunIDFormat(t *testing.T) {
	id := RunID("DS", contract.ModeRandom, "2026-01-02T03:04:05.000000Z")
	assert.Regexp(t, regexp.MustCompile(`^RUN-BIN384-[0-9A-F]{12}$`), id)
	assert.Equal(t, id, RunID("DS", contract.ModeRandom, "2026-01-02T03:04:05.000000Z"))
	assert.NotEqual(t, id, RunID("DS", contract.ModeFile, "2026-01-02T03:04:05.000000Z"))
}

// ---- 编码 ----

func TestEncodeKeepsNonASCIIAndHTML(t *testing.T) {
	rec := contract.RunRecord{DatasetID: "<אבג&>", Mode: contract.ModeFile, TopBins: []contract.TopBin{}}
	line, err := EncodeLine(rec)
	require.NoError(t, err)
	assert.Contains(t, string(line), `"dataset_id":"<אבג&>"`)
	assert.NotContains(t, string(line), "\n")

	snap, err := EncodeSnapshot(rec)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(snap), "{\n  \"schema_version\""))
	assert.True(t, strings.HasSuffix(string(snap), "}\n"))
}

// ---- Run ----

func TestRunPersistOrder(t *testing.T) {
	comp, r := stubComponents()
	jobs := []Job{
		{DatasetID: "DS1", Mode: contract.ModeFile, Source: payloads("x", "y")},
		{DatasetID: "DS2", Mode: contract.ModeFile, Source: payloads("z")},
	}
	recs, err := Run(context.Background(), comp, testSettings(), jobs, nil)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, []string{"append:runs.jsonl", "append:runs.jsonl", "write:latest.json"}, r.calls)
	require.Len(t, r.lines, 2)

	var first contract.RunRecord
	require.NoError(t, json.Unmarshal(r.lines[0], &first))
	if diff := cmp.Diff(recs[0], first); diff != "" {
		t.Fatalf("line 1 mismatch (-want +got):\n%s", diff)
	}
	var snap contract.RunRecord
	require.NoError(t, json.Unmarshal(r.snapshot, &snap))
	if diff := cmp.Diff(recs[1], snap); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestRunNothingProduced(t *testing.T) {
	comp, r := stubComponents()
	_, err := Run(context.Background(), comp, testSettings(), nil, nil)
	assert.ErrorIs(t, err, contract.ErrNothingProduced)
	assert.Empty(t, r.calls)
}

func TestRunAppendFailureSkipsSnapshot(t *testing.T) {
	comp, r := stubComponents()
	r.appendErr = errors.New("disk full")
	_, err := Run(context.Background(), comp, testSettings(), []Job{{DatasetID: "A", Mode: contract.ModeFile, Source: payloads("a")}}, nil)
	require.Error(t, err)
	assert.Equal(t, []string{"append:runs.jsonl"}, r.calls)
}

func TestRunSnapshotFailure(t *testing.T) {
	comp, r := stubComponents()
	r.writeErr = errors.New("read-only")
	recs, err := Run(context.Background(), comp, testSettings(), []Job{{DatasetID: "A", Mode: contract.ModeFile, Source: payloads("a")}}, nil)
	require.Error(t, err)
	assert.Len(t, recs, 1)
}

func TestRunSanity(t *testing.T) {
	_, err := Run(context.Background(), Components{}, testSettings(), nil, nil)
	require.Error(t, err)

	comp, _ := stubComponents()
	set := testSettings()
	set.NBins = -1
	_, err = Run(context.Background(), comp, set, []Job{{DatasetID: "A", Mode: contract.ModeFile, Source: payloads()}}, nil)
	assert.ErrorIs(t, err, contract.ErrInvalidArgument)

	set = testSettings()
	set.Summary = ""
	_, err = Run(context.Background(), comp, set, []Job{{DatasetID: "A", Mode: contract.ModeFile, Source: payloads()}}, nil)
	assert.ErrorIs(t, err, contract.ErrPathInvalid)
}

// 真实写出组件：JSONL 追加 + 原子快照 + 终端与日志。
func TestRunWithFilesystemComponents(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "audit", "runs.jsonl")
	summary := filepath.Join(dir, "audit", "summaries", "latest.json")

	snap, err := wfs.New(nil)
	require.NoError(t, err)
	var term bytes.Buffer
	comp := Components{
		Log:      jsonl.New(nil),
		Snapshot: snap,
		Terminal: diag.NewTerminal(&term, true),
	}
	logger := diag.NewLogger("corr-test", "debug", filepath.Join(dir, "logs"))
	defer logger.Sync()

	set := testSettings()
	set.Out = contract.NormalizeArtifactID(out)
	set.Summary = contract.NormalizeArtifactID(summary)

	var jobs []Job
	for i := 0; i < 3; i++ {
		r, err := random.New([]string{"a", "b", "c", "d", "e", "f"}, 40, int64(i), nil)
		require.NoError(t, err)
		seed := r.Seed()
		jobs = append(jobs, Job{DatasetID: fmt.Sprintf("RANDOM_CONTROL_N40_RUN%d", i+1), Mode: contract.ModeRandom, Source: r, Seed: &seed})
	}
	recs, err := Run(context.Background(), comp, set, jobs, logger)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	require.Len(t, lines, 3)
	for i, l := range lines {
		var got contract.RunRecord
		require.NoError(t, json.Unmarshal([]byte(l), &got))
		assert.Equal(t, recs[i].RunID, got.RunID)
		assert.Equal(t, int64(i), *got.Seed)
	}

	b, err := os.ReadFile(summary)
	require.NoError(t, err)
	var latest contract.RunRecord
	require.NoError(t, json.Unmarshal(b, &latest))
	if diff := cmp.Diff(recs[2], latest); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	assert.Contains(t, term.String(), "[run] mode=random | n_bins=384 | runs=3")
	assert.Contains(t, term.String(), "[ok] 全部完成 | 运行 3")
}
