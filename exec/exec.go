package exec

import (
	"context"
	"io"
	"time"
)

// Executor runs a command line and captures its output.
type Executor interface {
	// WithEnv returns an executor that adds env to the command environment.
	WithEnv(env map[string]string) Executor

	// WithDir returns an executor that runs commands in dir.
	WithDir(dir string) Executor

	// WithContext returns an executor bound to ctx.
	WithContext(ctx context.Context) Executor

	// WithTimeout returns an executor that kills commands running longer than d.
	// A zero duration disables the timeout.
	WithTimeout(d time.Duration) Executor

	// WithStdin returns an executor that feeds r to the command.
	WithStdin(r io.Reader) Executor

	// Run executes args[0] with the remaining arguments.
	// A non-zero exit returns the Result together with an *ExecError.
	Run(args ...string) (*Result, error)
}

// Result is the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	Combined string
	ExitCode int
}

// Option configures the defaults of a Command.
type Option func(*Command)

// WithEnv adds default environment variables.
func WithEnv(env map[string]string) Option {
	return func(c *Command) {
		for k, v := range env {
			c.env[k] = v
		}
	}
}

// WithDir sets the default working directory.
func WithDir(dir string) Option {
	return func(c *Command) {
		c.dir = dir
	}
}

// WithTimeout sets the default timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Command) {
		c.timeout = d
	}
}

// WithInheritEnv starts every command from the parent process environment.
func WithInheritEnv() Option {
	return func(c *Command) {
		c.inheritEnv = true
	}
}

// WithPassthrough streams output to w in addition to capturing it.
func WithPassthrough(stdout, stderr io.Writer) Option {
	return func(c *Command) {
		c.stdout = stdout
		c.stderr = stderr
	}
}
