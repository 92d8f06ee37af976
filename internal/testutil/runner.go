package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/g960059/sadb/internal/bridge"
)

const (
	ModeOutput = "output"
	ModeRun    = "run"
	ModeStart  = "start"
)

type Call struct {
	Mode string
	Name string
	Args []string
}

// Line renders the call as "name arg1 arg2 ...".
func (c Call) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Response is what FakeRunner returns for one call. A non-nil Err is treated as
// a spawn failure. For ModeStart, Exit makes Wait return immediately; otherwise
// the process runs until its context is cancelled.
type Response struct {
	Stdout   []byte
	ExitCode int
	Err      error
	Exit     bool
}

// FakeRunner records every call and answers from Respond (default: success).
type FakeRunner struct {
	Respond func(Call) Response

	mu        sync.Mutex
	calls     []Call
	processes []*FakeProcess
}

func (f *FakeRunner) record(mode, name string, args []string) Response {
	call := Call{Mode: mode, Name: name, Args: append([]string(nil), args...)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if f.Respond == nil {
		return Response{}
	}
	return f.Respond(call)
}

func (f *FakeRunner) Output(_ context.Context, name string, args ...string) (bridge.Result, error) {
	r := f.record(ModeOutput, name, args)
	if r.Err != nil {
		return bridge.Result{}, r.Err
	}
	return bridge.Result{Stdout: r.Stdout, ExitCode: r.ExitCode}, nil
}

func (f *FakeRunner) Run(_ context.Context, name string, args ...string) (bridge.Result, error) {
	r := f.record(ModeRun, name, args)
	if r.Err != nil {
		return bridge.Result{}, r.Err
	}
	return bridge.Result{ExitCode: r.ExitCode}, nil
}

func (f *FakeRunner) Start(ctx context.Context, name string, args ...string) (bridge.Process, error) {
	r := f.record(ModeStart, name, args)
	if r.Err != nil {
		return nil, r.Err
	}
	p := &FakeProcess{ctx: ctx, exit: r.Exit, code: r.ExitCode}
	f.mu.Lock()
	f.processes = append(f.processes, p)
	f.mu.Unlock()
	return p, nil
}

func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Lines returns Call.Line for every recorded call, in order.
func (f *FakeRunner) Lines() []string {
	calls := f.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Line())
	}
	return out
}

func (f *FakeRunner) Processes() []*FakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeProcess(nil), f.processes...)
}

type FakeProcess struct {
	ctx  context.Context
	exit bool
	code int

	mu          sync.Mutex
	interrupted bool
}

var errInterrupted = errors.New("signal: interrupt")

func (p *FakeProcess) Wait() error {
	if p.exit {
		if p.code != 0 {
			return fmt.Errorf("exit status %d", p.code)
		}
		return nil
	}
	<-p.ctx.Done()
	p.mu.Lock()
	p.interrupted = true
	p.mu.Unlock()
	return errInterrupted
}

func (p *FakeProcess) Interrupted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interrupted
}

// ScriptByArgs answers calls whose joined args contain a key with the mapped
// response; everything else succeeds. When several keys match, the longest
// one wins, and equal lengths fall back to lexical order.
func ScriptByArgs(script map[string]Response) func(Call) Response {
	keys := make([]string, 0, len(script))
	for key := range script {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return func(c Call) Response {
		line := strings.Join(c.Args, " ")
		for _, key := range keys {
			if strings.Contains(line, key) {
				return script[key]
			}
		}
		return Response{}
	}
}
