package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// DefaultGrace is how long FFmpeg gets to finalize after 'q' before it is killed.
const DefaultGrace = 5 * time.Second

// stderrTail bounds the FFmpeg diagnostics quoted in errors.
const stderrTail = 2048

// RunGraceful executes FFmpeg until it exits. When ctx is canceled it sends
// 'q' to stdin so FFmpeg can close its output, waits up to grace, then kills
// the process. A canceled run returns ctx.Err() since the output is partial.
// There is no other timeout: a long encode runs to completion.
func RunGraceful(ctx context.Context, ffmpegPath string, args []string, grace time.Duration) error {
	cmd := exec.Command(ffmpegPath, args...) // #nosec G204 -- args are built internally

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v\n%s", ErrFailed, err, tail(stderr.String()))
		}
		return nil

	case <-ctx.Done():
		_, _ = io.WriteString(stdin, "q")
		_ = stdin.Close()

		select {
		case <-done:
			return ctx.Err()
		case <-time.After(grace):
			_ = cmd.Process.Kill()
			<-done
			return fmt.Errorf("%w: killed after %v: %w", ErrTimeout, grace, ctx.Err())
		}
	}
}

// tail returns the last stderrTail bytes of s.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= stderrTail {
		return s
	}
	return "..." + s[len(s)-stderrTail:]
}

// ---------------------------------------------------------------------------
// Executor - testable FFmpeg execution with dependency injection
// ---------------------------------------------------------------------------

// runFn runs FFmpeg to completion.
type runFn func(ctx context.Context, path string, args []string) error

// runOutputFn is the function type for running a command and capturing output.
type runOutputFn func(ctx context.Context, path string, args []string) (string, error)

// Executor runs FFmpeg commands with injectable dependencies.
type Executor struct {
	run       runFn
	runOutput runOutputFn
	grace     time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRun sets a custom run function (for testing).
func WithRun(fn runFn) ExecutorOption {
	return func(e *Executor) { e.run = fn }
}

// WithRunOutput sets a custom runOutput function (for testing).
func WithRunOutput(fn runOutputFn) ExecutorOption {
	return func(e *Executor) { e.runOutput = fn }
}

// WithGrace sets the graceful shutdown window.
func WithGrace(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.grace = d }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		runOutput: defaultRunOutput,
		grace:     DefaultGrace,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.run == nil {
		grace := e.grace
		e.run = func(ctx context.Context, path string, args []string) error {
			return RunGraceful(ctx, path, args, grace)
		}
	}
	return e
}

// Run executes FFmpeg to completion.
func (e *Executor) Run(ctx context.Context, ffmpegPath string, args []string) error {
	return e.run(ctx, ffmpegPath, args)
}

// RunOutput executes FFmpeg and captures its stderr output.
// FFmpeg writes most diagnostic output (version, probe info) to stderr.
func (e *Executor) RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	return e.runOutput(ctx, ffmpegPath, args)
}

// defaultRunOutput returns combined stdout and stderr even when the
// command fails. `ffmpeg -version` writes to stdout; other diagnostics
// go to stderr.
func defaultRunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, args...) // #nosec G204 -- args are built internally

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.String(), err
}
