package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// DefaultGracePeriod is how long a canceled process gets between SIGTERM
// and SIGKILL.
const DefaultGracePeriod = 5 * time.Second

// Command is one subprocess invocation.
type Command struct {
	// Binary is resolved on PATH when it has no slash.
	Binary string
	Args   []string
	Dir    string
	// Env entries are appended to the parent environment.
	Env   []string
	Stdin io.Reader
	// GracePeriod overrides DefaultGracePeriod.
	GracePeriod time.Duration
}

// Result is what a finished process left behind.
type Result struct {
	Stdout []byte
	Stderr []byte
	// ExitCode is -1 when the process was killed by a signal.
	ExitCode int
	Duration time.Duration
}

// StderrTail returns the last n non-empty stderr lines. Media tools print
// banners first and the actual failure last.
func (r *Result) StderrTail(n int) string {
	if r == nil {
		return ""
	}
	var lines []string
	for _, l := range strings.Split(string(r.Stderr), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Run starts cmd in its own process group and waits for it. Canceling ctx
// sends SIGTERM to the whole group, then SIGKILL once the grace period
// has passed. A non-nil Result is returned whenever the process started.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, errors.New("process: binary is required")
	}
	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // running tools is the point
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdin = cmd.Stdin

	var stdout, stderr bytes.Buffer
	c.Stdout, c.Stderr = &stdout, &stderr
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error { return syscall.Kill(-c.Process.Pid, syscall.SIGTERM) }
	c.WaitDelay = cmd.GracePeriod
	if c.WaitDelay <= 0 {
		c.WaitDelay = DefaultGracePeriod
	}

	start := time.Now()
	err := c.Run()
	if c.ProcessState == nil {
		return nil, fmt.Errorf("process: start %s: %w", cmd.Binary, err)
	}
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}
	switch {
	case err == nil:
		return res, nil
	case ctx.Err() != nil:
		return res, fmt.Errorf("process: %s canceled: %w", cmd.Binary, ctx.Err())
	default:
		return res, fmt.Errorf("process: %s exited %d: %w", cmd.Binary, res.ExitCode, err)
	}
}
