package process

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

type Result struct {
	Stdout []byte
	Stderr []byte
}

// Runner executes an external tool to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// ExitError is returned when a tool could not start or exited non-zero.
// Stderr holds whatever the tool printed before failing.
type ExitError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s error: %s", e.Tool, msg)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Exec runs tools as child processes. Each child gets its own process group
// and the whole group is signalled when the context is cancelled.
type Exec struct {
	logger *slog.Logger
}

func NewExec(logger *slog.Logger) *Exec {
	return &Exec{logger: logger}
}

func (e *Exec) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	setProcessGroup(cmd)

	start := time.Now()

	e.logger.Info("running external tool",
		slog.String("tool", name),
		slog.Any("args", args),
	)

	err := cmd.Run()

	res := &Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if err != nil {
		e.logger.Error("external tool failed",
			slog.String("tool", name),
			slog.String("err", err.Error()),
			slog.String("stderr", stderr.String()),
		)
		return res, &ExitError{
			Tool:   filepath.Base(name),
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	e.logger.Debug("external tool finished",
		slog.String("tool", name),
		slog.Duration("took", time.Since(start)),
	)

	return res, nil
}

// LookPath reports where a tool resolves on PATH.
func LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
