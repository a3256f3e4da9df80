package exec

import (
	"context"
	"io"
	"os"
	osexec "os/exec"
	"time"
)

// Command is the os/exec backed Executor.
type Command struct {
	ctx        context.Context
	env        map[string]string
	dir        string
	timeout    time.Duration
	inheritEnv bool
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
}

// New creates a Command with the given defaults.
func New(opts ...Option) *Command {
	c := &Command{
		ctx: context.Background(),
		env: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Command) clone() *Command {
	cp := *c
	cp.env = make(map[string]string, len(c.env))
	for k, v := range c.env {
		cp.env[k] = v
	}
	return &cp
}

// WithEnv implements Executor.
func (c *Command) WithEnv(env map[string]string) Executor {
	cp := c.clone()
	for k, v := range env {
		cp.env[k] = v
	}
	return cp
}

// WithDir implements Executor.
func (c *Command) WithDir(dir string) Executor {
	cp := c.clone()
	cp.dir = dir
	return cp
}

// WithContext implements Executor.
func (c *Command) WithContext(ctx context.Context) Executor {
	cp := c.clone()
	cp.ctx = ctx
	return cp
}

// WithTimeout implements Executor.
func (c *Command) WithTimeout(d time.Duration) Executor {
	cp := c.clone()
	cp.timeout = d
	return cp
}

// WithStdin implements Executor.
func (c *Command) WithStdin(r io.Reader) Executor {
	cp := c.clone()
	cp.stdin = r
	return cp
}

// Run implements Executor.
func (c *Command) Run(args ...string) (*Result, error) {
	if len(args) == 0 {
		return nil, &ExecError{Command: args, ExitCode: -1, Err: osexec.ErrNotFound}
	}

	ctx := c.ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := osexec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = c.dir
	cmd.Stdin = c.stdin
	if c.inheritEnv {
		cmd.Env = os.Environ()
	}
	for k, v := range c.env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdout := newOutputCapture(c.stdout)
	stderr := newOutputCapture(c.stderr)
	combined := &lockedBuffer{}
	cmd.Stdout = io.MultiWriter(stdout, combined)
	cmd.Stderr = io.MultiWriter(stderr, combined)

	err := cmd.Run()

	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Combined: combined.String(),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		return res, &ExecError{
			Command:  args,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			Err:      err,
		}
	}
	return res, nil
}
