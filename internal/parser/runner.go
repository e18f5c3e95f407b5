package parser

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxStderrLog 日志中 stderr 的最大字节数
const maxStderrLog = 8 << 10

// Runner 执行外部命令，测试中可替换
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner 基于 os/exec 的实现，记录耗时与截断后的 stderr
type ExecRunner struct {
	Logger zerolog.Logger
}

// NewExecRunner 创建命令执行器
func NewExecRunner(logger zerolog.Logger) *ExecRunner {
	return &ExecRunner{Logger: logger}
}

// Run 执行命令
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	r.Logger.Debug().Str("cmd_line", strings.Join(append([]string{name}, args...), " ")).Msg("执行外部命令")

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		r.Logger.Error().
			Str("cmd", name).
			Int64("duration_ms", dur.Milliseconds()).
			Err(err).
			Str("stderr", truncateOutput(errb.String(), maxStderrLog)).
			Msg("外部命令失败")
	} else {
		r.Logger.Debug().
			Str("cmd", name).
			Int64("duration_ms", dur.Milliseconds()).
			Int("stdout_bytes", out.Len()).
			Int("stderr_bytes", errb.Len()).
			Msg("外部命令完成")
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncateOutput(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
