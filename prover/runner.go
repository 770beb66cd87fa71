package prover

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

// Sentinel errors
var (
	ErrLaunch   = fmt.Errorf("failed to launch prover")
	ErrTimeout  = fmt.Errorf("prover timed out")
	ErrCanceled = fmt.Errorf("prover run canceled")
	ErrCrashed  = fmt.Errorf("prover terminated abnormally")
)

// RunResult is the raw outcome of a child process.
type RunResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner starts name with args in dir and waits for it. A non-zero exit is
// not an error; failing to start, timing out or being canceled is.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (RunResult, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// WaitDelay bounds how long to wait for output pipes after the process
	// was killed
	WaitDelay time.Duration
}

func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (RunResult, error) {
	c := exec.CommandContext(ctx, name, args...)
	c.Dir = dir
	c.WaitDelay = r.WaitDelay
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := RunResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	switch ctx.Err() {
	case context.DeadlineExceeded:
		return res, errors.Wrap(ErrTimeout, name)
	case context.Canceled:
		return res, errors.Wrap(ErrCanceled, name)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			// killed by a signal, not a verdict
			return res, errors.Wrapf(ErrCrashed, "%s: %v", name, err)
		}
		return res, nil
	}
	return res, errors.Wrapf(ErrLaunch, "%s: %v", name, err)
}
