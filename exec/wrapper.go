package exec

import (
	"context"
	"io"
	"time"
)

// CommandWrapper prepends fixed arguments to every Run call, for example
// "sudo -n" in front of a privileged tool.
type CommandWrapper struct {
	executor Executor
	prefix   []string
}

// NewWrapper returns an Executor that runs prefix followed by the Run arguments.
func NewWrapper(executor Executor, prefix ...string) *CommandWrapper {
	return &CommandWrapper{executor: executor, prefix: append([]string(nil), prefix...)}
}

func (w *CommandWrapper) derive(x Executor) Executor {
	return &CommandWrapper{executor: x, prefix: w.prefix}
}

// WithEnv implements Executor.
func (w *CommandWrapper) WithEnv(env map[string]string) Executor {
	return w.derive(w.executor.WithEnv(env))
}

// WithDir implements Executor.
func (w *CommandWrapper) WithDir(dir string) Executor {
	return w.derive(w.executor.WithDir(dir))
}

// WithContext implements Executor.
func (w *CommandWrapper) WithContext(ctx context.Context) Executor {
	return w.derive(w.executor.WithContext(ctx))
}

// WithTimeout implements Executor.
func (w *CommandWrapper) WithTimeout(d time.Duration) Executor {
	return w.derive(w.executor.WithTimeout(d))
}

// WithStdin implements Executor.
func (w *CommandWrapper) WithStdin(r io.Reader) Executor {
	return w.derive(w.executor.WithStdin(r))
}

// Run implements Executor.
func (w *CommandWrapper) Run(args ...string) (*Result, error) {
	full := make([]string, 0, len(w.prefix)+len(args))
	full = append(full, w.prefix...)
	full = append(full, args...)
	return w.executor.Run(full...)
}
