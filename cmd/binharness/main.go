package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"binharness/internal/diag"
	"binharness/internal/pipeline"
	"binharness/pkg/contract"
)

var pipelineRun = pipeline.Run

// 退出码：0 成功；1 运行期错误；2 配置/用法错误（开始工作之前检出）。
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app 承载一次调用的流与旗标；不设进程级全局。
type app struct {
	stdout io.Writer
	stderr io.Writer
	corrID string
	start  time.Time
	// started: 进入子命令 RunE 后置位；此前的错误均为用法错误。
	started bool
	logger  *diag.Logger

	common commonFlags
}

func run(args []string, stdout, stderr io.Writer) int {
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")

	a := &app{stdout: stdout, stderr: stderr, corrID: uuid.NewString(), start: time.Now()}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(context.Background())
	defer func() { _ = a.logger.Sync() }()
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	if !a.started || errors.Is(err, contract.ErrConfigInvalid) {
		// 配置错误不落任何文件（含日志）
		return exitConfig
	}
	a.logger.Error("cli", string(diag.Classify(err)), "first error", &a.start)
	return exitRuntime
}
