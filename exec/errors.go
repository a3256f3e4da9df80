package exec

import (
	"fmt"
	"strings"
)

// ExecError reports a command that could not start or exited non-zero.
type ExecError struct {
	Command  []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("command %q failed with exit code %d", e.Cmdline(), e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Cmdline returns the command joined by spaces.
func (e *ExecError) Cmdline() string {
	return strings.Join(e.Command, " ")
}
