package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// MaxCaptureBytes bounds how much stdout/stderr is retained per invocation.
// Toolchain stderr is kept for diagnostics, never parsed, so a prefix is
// enough.
const MaxCaptureBytes = 4096

// DefaultKillGrace is how long Wait may linger after the process is
// terminated before its pipes are forcibly abandoned.
const DefaultKillGrace = 5 * time.Second

// Command describes a single toolchain invocation. Arguments are passed as a
// list; nothing is ever interpreted by a shell.
type Command struct {
	Binary  string
	Args    []string
	Timeout time.Duration
}

// Result reports a completed invocation, including non-zero exits. Callers
// decide what a non-zero exit means; the runner never swallows it.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Reason classifies why an invocation never produced a usable Result.
type Reason string

const (
	ReasonSpawnError Reason = "spawn-error"
	ReasonTimeout    Reason = "timeout"
	ReasonKilled     Reason = "killed"
)

// Failure is returned when the process could not be started or did not run
// to completion. The underlying process is always reaped before a Failure
// is returned.
type Failure struct {
	Reason Reason
	Binary string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("run %s: %s: %v", f.Binary, f.Reason, f.Err)
	}
	return fmt.Sprintf("run %s: %s", f.Binary, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

// ProcessError is how callers surface a non-zero toolchain exit. The stderr
// prefix is preserved verbatim for diagnostics.
type ProcessError struct {
	Binary   string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		return fmt.Sprintf("%s exited with code %d", e.Binary, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Binary, e.ExitCode, detail)
}

// Runner executes toolchain commands. The interface exists so orchestration
// code can be tested against a deterministic fake without real binaries.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Exec is the real Runner backed by os/exec.
type Exec struct {
	killGrace time.Duration
}

// Option configures an Exec runner.
type Option func(*Exec)

// WithKillGrace overrides the post-termination wait grace.
func WithKillGrace(grace time.Duration) Option {
	return func(e *Exec) {
		if grace > 0 {
			e.killGrace = grace
		}
	}
}

// NewExec constructs the real runner.
func NewExec(opts ...Option) *Exec {
	e := &Exec{killGrace: DefaultKillGrace}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the command, enforcing the timeout and caller cancellation.
// A timed-out or cancelled process is terminated and reaped before Run
// returns.
func (e *Exec) Run(ctx context.Context, command Command) (Result, error) {
	binary := strings.TrimSpace(command.Binary)
	if binary == "" {
		return Result{}, &Failure{Reason: ReasonSpawnError, Binary: binary, Err: errors.New("empty binary")}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if command.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, command.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, binary, command.Args...) //nolint:gosec
	cmd.WaitDelay = e.killGrace

	var stdout, stderr boundedBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	if err != nil {
		// Check the contexts first: a killed process also reports an
		// *exec.ExitError and must not be mistaken for a toolchain exit.
		if runCtx.Err() != nil && ctx.Err() == nil {
			return Result{}, &Failure{Reason: ReasonTimeout, Binary: binary, Err: runCtx.Err()}
		}
		if ctx.Err() != nil {
			return Result{}, &Failure{Reason: ReasonKilled, Binary: binary, Err: ctx.Err()}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				Duration: elapsed,
			}, nil
		}
		return Result{}, &Failure{Reason: ReasonSpawnError, Binary: binary, Err: err}
	}

	return Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}, nil
}

var _ Runner = (*Exec)(nil)

// boundedBuffer keeps the first MaxCaptureBytes of whatever is written and
// discards the rest, noting the truncation.
type boundedBuffer struct {
	data      []byte
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	remaining := MaxCaptureBytes - len(b.data)
	if remaining > 0 {
		if len(p) <= remaining {
			b.data = append(b.data, p...)
		} else {
			b.data = append(b.data, p[:remaining]...)
			b.truncated = true
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	if b.truncated {
		return string(b.data) + "\n[output truncated]"
	}
	return string(b.data)
}
