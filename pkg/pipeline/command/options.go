package command

import (
	"io"
	"log/slog"
	"time"
)

// DefaultTimeout is the time Wait allows a process before giving up on it.
const DefaultTimeout = 1000 * time.Second

type Option func(c *Command)

// WithTimeout sets the time Wait allows the process. A non positive value disables the limit.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Command) {
		c.timeout = timeout
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Command) {
		c.logger = logger
	}
}

// WithStdout sets the writer Log mirrors the captured stdout to.
func WithStdout(w io.Writer) Option {
	return func(c *Command) {
		c.stdoutMirror = w
	}
}

// WithStderr sets the writer Log mirrors the captured stderr to.
func WithStderr(w io.Writer) Option {
	return func(c *Command) {
		c.stderrMirror = w
	}
}
