// Package exectest provides a recording Executor for tests.
package exectest

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Capmega/phoundation-sub014/exec"
)

// Call is one recorded Run invocation.
type Call struct {
	Args    []string
	Dir     string
	Timeout time.Duration
}

// Cmdline returns the recorded arguments joined by spaces.
func (c Call) Cmdline() string {
	return strings.Join(c.Args, " ")
}

// Handler decides the outcome of a recorded call.
type Handler func(args []string) (*exec.Result, error)

// Recorder is an exec.Executor that records calls instead of running them.
// Derived executors share the recording.
type Recorder struct {
	state   *state
	dir     string
	timeout time.Duration
}

type state struct {
	mu      sync.Mutex
	calls   []Call
	handler Handler
}

// New returns a Recorder whose calls all succeed with empty output.
func New() *Recorder {
	return &Recorder{state: &state{}}
}

// OnRun installs a handler that decides each call's result.
func (r *Recorder) OnRun(h Handler) *Recorder {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.handler = h
	return r
}

// FailWith makes every call fail with the given exit code and stderr.
func (r *Recorder) FailWith(code int, stderr string) *Recorder {
	return r.OnRun(func(args []string) (*exec.Result, error) {
		res := &exec.Result{Stderr: stderr, ExitCode: code}
		return res, &exec.ExecError{Command: args, ExitCode: code, Stderr: stderr}
	})
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return append([]Call(nil), r.state.calls...)
}

// Cmdlines returns the recorded calls as joined strings.
func (r *Recorder) Cmdlines() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Cmdline()
	}
	return out
}

func (r *Recorder) derive() *Recorder {
	cp := *r
	return &cp
}

func (r *Recorder) WithEnv(map[string]string) exec.Executor { return r.derive() }

func (r *Recorder) WithDir(dir string) exec.Executor {
	cp := r.derive()
	cp.dir = dir
	return cp
}

func (r *Recorder) WithContext(context.Context) exec.Executor { return r.derive() }

func (r *Recorder) WithTimeout(d time.Duration) exec.Executor {
	cp := r.derive()
	cp.timeout = d
	return cp
}

func (r *Recorder) WithStdin(io.Reader) exec.Executor { return r.derive() }

func (r *Recorder) Run(args ...string) (*exec.Result, error) {
	r.state.mu.Lock()
	r.state.calls = append(r.state.calls, Call{
		Args:    append([]string(nil), args...),
		Dir:     r.dir,
		Timeout: r.timeout,
	})
	h := r.state.handler
	r.state.mu.Unlock()

	if h == nil {
		return &exec.Result{}, nil
	}
	return h(args)
}

var _ exec.Executor = (*Recorder)(nil)
