package prover

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultTool is the OpenTimestamps javascript client
	DefaultTool = "ots-cli.js"
	// DefaultTimeout bounds a single invocation
	DefaultTimeout = 2 * time.Minute
)

// Gateway runs the prover tool for stamp, verify and upgrade requests.
type Gateway struct {
	tool        string
	timeout     time.Duration
	runner      Runner
	mode        ModeSelector
	classifiers map[Operation]Classifier
}

// Option configures a Gateway
type Option func(*Gateway)

// WithRunner replaces the os/exec runner
func WithRunner(r Runner) Option {
	return func(g *Gateway) {
		g.runner = r
	}
}

// WithTimeout sets the per-invocation timeout
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = d
	}
}

// WithModeSelector sets how verify picks node or explorer mode
func WithModeSelector(m ModeSelector) Option {
	return func(g *Gateway) {
		g.mode = m
	}
}

// WithClassifier overrides the outcome classifier of one operation
func WithClassifier(op Operation, c Classifier) Option {
	return func(g *Gateway) {
		g.classifiers[op] = c
	}
}

// New creates a Gateway for tool. Without options it uses os/exec, the
// default timeout and explorer mode.
func New(tool string, opts ...Option) *Gateway {
	if tool == "" {
		tool = DefaultTool
	}
	g := &Gateway{
		tool:        tool,
		timeout:     DefaultTimeout,
		runner:      ExecRunner{WaitDelay: time.Second},
		mode:        FixedMode(ModeExplorer),
		classifiers: defaultClassifiers(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Tool returns the executable the gateway runs
func (g *Gateway) Tool() string {
	return g.tool
}

// Invoke runs op. The returned error is set only for faults on this side
// (bad request values, launch failure, timeout, cancellation, a crashed
// tool); a tool that rejected its
// input yields a Result whose Outcome is not Success.
func (g *Gateway) Invoke(ctx context.Context, op Operation, req Request) (*Result, error) {
	classify, ok := g.classifiers[op]
	if !ok {
		return nil, errors.Wrap(ErrUnknownOperation, op.String())
	}

	mode := ModeExplorer
	if op == Verify {
		mode = g.mode.Mode(ctx)
	}

	args, err := Args(op, mode, req)
	if err != nil {
		return nil, err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	slog.Debug("invoking prover", "tool", g.tool, "args", args, "dir", req.Dir)
	started := time.Now()
	run, err := g.runner.Run(ctx, req.Dir, g.tool, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "%s failed", op)
	}

	res := &Result{
		Op:       op,
		Mode:     mode,
		Args:     args,
		Outcome:  classify(run),
		ExitCode: run.ExitCode,
		Stdout:   run.Stdout,
		Stderr:   run.Stderr,
	}
	slog.Debug("prover finished",
		"op", op.String(),
		"exit_code", res.ExitCode,
		"outcome", res.Outcome.String(),
		"elapsed", time.Since(started),
	)
	return res, nil
}
