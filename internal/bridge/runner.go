package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"
	"unicode/utf8"
)

// ErrSpawn marks a child process that could not be started at all, as opposed
// to one that ran and exited non-zero.
var ErrSpawn = errors.New("spawn failed")

// ErrMalformedOutput marks stdout that had to be decoded as text but was not valid UTF-8.
var ErrMalformedOutput = errors.New("malformed output")

type Result struct {
	Stdout   []byte
	ExitCode int
}

func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Text decodes Stdout as UTF-8 text.
func (r Result) Text() (string, error) {
	if !utf8.Valid(r.Stdout) {
		return "", ErrMalformedOutput
	}
	return string(r.Stdout), nil
}

// Process is a started child process.
type Process interface {
	Wait() error
}

// Runner executes external programs. Non-zero exits are reported through
// Result.ExitCode with a nil error; only failures to start return ErrSpawn.
type Runner interface {
	// Output captures stdout. Stderr passes through to the runner's stderr.
	Output(ctx context.Context, name string, args ...string) (Result, error)
	// Run attaches the child to the runner's stdio.
	Run(ctx context.Context, name string, args ...string) (Result, error)
	// Start launches a child bound to ctx: cancelling ctx interrupts it.
	// The child does not read stdin.
	Start(ctx context.Context, name string, args ...string) (Process, error)
}

type OSRunner struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	WaitDelay time.Duration
}

func NewOSRunner() *OSRunner {
	return &OSRunner{
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		WaitDelay: 3 * time.Second,
	}
}

func (r *OSRunner) Output(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = r.Stderr
	out, err := cmd.Output()
	code, err := classify(ctx, name, err)
	if err != nil {
		return Result{}, err
	}
	return Result{Stdout: out, ExitCode: code}, nil
}

func (r *OSRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	code, err := classify(ctx, name, cmd.Run())
	if err != nil {
		return Result{}, err
	}
	return Result{ExitCode: code}, nil
}

func (r *OSRunner) Start(ctx context.Context, name string, args ...string) (Process, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Cancel = func() error { return interrupt(cmd.Process) }
	cmd.WaitDelay = r.WaitDelay
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, name, err)
	}
	return cmd, nil
}

func classify(ctx context.Context, name string, err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code, nil
		}
		// terminated by a signal
		return -1, nil
	}
	return 0, fmt.Errorf("%w: %s: %v", ErrSpawn, name, err)
}

func interrupt(p *os.Process) error {
	if p == nil {
		return os.ErrProcessDone
	}
	if runtime.GOOS == "windows" {
		return p.Kill()
	}
	return p.Signal(os.Interrupt)
}
