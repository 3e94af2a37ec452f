package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultLogDir 为日志默认目录；10MiB 轮转。
const DefaultLogDir = ".audit-logs/bin_harness/logs"

// Logger 为结构化日志器：zap JSON 单行输出到轮转文件；sink 不可写时回退 stderr。
// 所有方法对 nil 接收者安全，库代码可在无日志器时运行。
type Logger struct {
	z    *zap.Logger
	sink *lumberjack.Logger
}

// NewLogger 按 level 初始化，写入 dir（为空时使用 DefaultLogDir）。
func NewLogger(corrID, level, dir string) *Logger {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultLogDir
	}
	sink := newRotatingSink(dir)
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.Lock(&fallbackWriter{sink: sink}),
		parseLevel(level),
	)
	l := newLogger(core, corrID)
	l.sink = sink
	return l
}

// newLogger 以给定 core 构造（测试可注入 observer）。
func newLogger(core zapcore.Core, corrID string) *Logger {
	z := zap.New(core)
	if corrID != "" {
		z = z.With(zap.String("corr_id", corrID))
	}
	return &Logger{z: z}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     func(t time.Time, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(t.UTC().Format(time.RFC3339)) },
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// fallbackWriter 写 sink 失败时改写 stderr。
type fallbackWriter struct {
	sink io.Writer
}

func (w *fallbackWriter) Write(p []byte) (int, error) {
	if _, err := w.sink.Write(p); err != nil {
		fmt.Fprintf(os.Stderr, "logger sink error: %v\n", err)
		return os.Stderr.Write(p)
	}
	return len(p), nil
}

// Sync: lumberjack 每次 Write 直接落到文件，无需额外刷新。
func (w *fallbackWriter) Sync() error {
	return nil
}

func event(comp, stage string) []zap.Field {
	return []zap.Field{zap.String("comp", comp), zap.String("stage", stage)}
}

func withDataset(fs []zap.Field, dataset string) []zap.Field {
	if dataset != "" {
		fs = append(fs, zap.String("dataset_id", dataset))
	}
	return fs
}

func withKV(fs []zap.Field, kv map[string]string) []zap.Field {
	if len(kv) > 0 {
		fs = append(fs, zap.Any("kv", kv))
	}
	return fs
}

func durSinceField(durSince *time.Time) []zap.Field {
	if durSince == nil {
		return nil
	}
	return []zap.Field{zap.Int64("dur_ms", time.Since(*durSince).Milliseconds())}
}

// StartWith 记录带 dataset_id 的 start。
func (l *Logger) StartWith(comp, msg, dataset string) *Timer {
	return l.StartWithKV(comp, msg, dataset, nil)
}

// StartWithKV 记录带 dataset_id 与键值的 start。
func (l *Logger) StartWithKV(comp, msg, dataset string, kv map[string]string) *Timer {
	if l == nil {
		return nil
	}
	l.z.Info(msg, withKV(withDataset(event(comp, "start"), dataset), kv)...)
	return &Timer{l: l, comp: comp, dataset: dataset, t0: time.Now()}
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, "", nil)
}

// ErrorWithKV 支持附带键值对（例如出错路径、错误文本）。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, dataset string, kv map[string]string) {
	if l == nil {
		return
	}
	fs := append(event(comp, "error"), zap.String("code", code))
	fs = append(fs, durSinceField(durSince)...)
	l.z.Error(msg, withKV(withDataset(fs, dataset), kv)...)
}

// DebugStart 输出调试级别的 start 类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, dataset string, kv map[string]string) {
	if l == nil {
		return
	}
	l.z.Debug(msg, withKV(withDataset(event(comp, "start"), dataset), kv)...)
}

// Sync 刷新缓冲并关闭文件句柄。
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	_ = l.z.Sync()
	if l.sink != nil {
		return l.sink.Close()
	}
	return nil
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l       *Logger
	comp    string
	dataset string
	t0      time.Time
}

// Finish 记录 finish；count 为处理条数。
func (t *Timer) Finish(msg string, count int64) {
	t.FinishWithKV(msg, count, nil)
}

// FinishWithKV 记录带键值的 finish。
func (t *Timer) FinishWithKV(msg string, count int64, kv map[string]string) {
	if t == nil || t.l == nil {
		return
	}
	fs := append(event(t.comp, "finish"),
		zap.Int64("dur_ms", time.Since(t.t0).Milliseconds()), zap.Int64("count", count))
	t.l.z.Info(msg, withKV(withDataset(fs, t.dataset), kv)...)
}
