package command

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// State is the lifecycle step of a command.
type State int

const (
	StateBuilt State = iota
	StateRunning
	StateCompleted
	StateTimedOut
)

var stateNames = [...]string{
	StateBuilt:     "built",
	StateRunning:   "running",
	StateCompleted: "completed",
	StateTimedOut:  "timed out",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}

	return fmt.Sprintf("State(%d)", int(s))
}

var logSeparator = strings.Repeat("-", 40)

// Command is one invocation of an external program under a profile. The
// program is started by Run and observed by Wait. Its stdout and stderr are
// captured separately and kept once the program has exited.
type Command struct {
	profile      Profile
	timeout      time.Duration
	logger       *slog.Logger
	stdoutMirror io.Writer
	stderrMirror io.Writer

	mu       sync.Mutex
	argv     []string
	state    State
	proc     *execution
	stdout   *string
	stderr   *string
	exitCode int
}

type execution struct {
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer
	done   chan struct{}
	err    error
}

// New builds the argument vector of cmd for profile.
func New(cmd string, profile Profile, opts ...Option) (*Command, error) {
	argv, err := profile.Argv(cmd)
	if err != nil {
		return nil, err
	}

	c := &Command{
		profile:      profile,
		timeout:      DefaultTimeout,
		logger:       slog.Default(),
		stdoutMirror: os.Stdout,
		stderrMirror: os.Stderr,
		argv:         argv,
		exitCode:     -1,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Cmd is the argument vector joined by single spaces.
func (c *Command) Cmd() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return strings.Join(c.argv, " ")
}

// Args returns a copy of the argument vector.
func (c *Command) Args() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.argv)
}

func (c *Command) Profile() Profile { return c.profile }

func (c *Command) Timeout() time.Duration { return c.timeout }

func (c *Command) String() string { return c.Cmd() }

func (c *Command) GoString() string {
	return fmt.Sprintf("<Command cmd=%q timeout=%s>", c.Cmd(), c.timeout)
}

func (c *Command) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// ExitCode is the exit code of the completed process, -1 until then.
func (c *Command) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.exitCode
}

// Run starts the program in cwd and returns without waiting for it. An empty
// cwd runs it in the current directory. Cancelling ctx kills the process.
func (c *Command) Run(ctx context.Context, cwd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc != nil {
		return errors.Wrapf(ErrAlreadyStarted, "%s", strings.Join(c.argv, " "))
	}

	run := &execution{done: make(chan struct{})}
	run.cmd = exec.CommandContext(ctx, c.argv[0], c.argv[1:]...) //nolint:gosec
	run.cmd.Dir = cwd
	run.cmd.Stdout = &run.stdout
	run.cmd.Stderr = &run.stderr

	if err := run.cmd.Start(); err != nil {
		return errors.Wrapf(err, "unable to start %s", strings.Join(c.argv, " "))
	}

	go func() {
		run.err = run.cmd.Wait()
		close(run.done)
	}()

	c.proc = run
	c.state = StateRunning
	c.stdout, c.stderr = nil, nil
	c.exitCode = -1

	return nil
}

// Wait blocks until the process exits, the timeout elapses or ctx is done. A
// timed out process is left running and its output stays uncaptured, so Wait
// may be called again. A non zero exit code is not an error, see ExitCode.
func (c *Command) Wait(ctx context.Context) error {
	c.mu.Lock()
	run := c.proc
	c.mu.Unlock()

	if run == nil {
		return ErrNotRun
	}

	var timeout <-chan time.Time

	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()

		timeout = timer.C
	}

	select {
	case <-run.done:
		return c.complete(run)
	case <-timeout:
		c.mu.Lock()
		if c.proc == run {
			c.state = StateTimedOut
		}
		c.mu.Unlock()

		return errors.Wrapf(ErrProcessTimeout, "%s did not finish within %s", strings.Join(run.cmd.Args, " "), c.timeout)
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "unable to wait for command")
	}
}

func (c *Command) complete(run *execution) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.proc != run {
		return nil
	}

	stdout, stderr := run.stdout.String(), run.stderr.String()
	c.stdout, c.stderr = &stdout, &stderr
	c.state = StateCompleted

	if run.cmd.ProcessState != nil {
		c.exitCode = run.cmd.ProcessState.ExitCode()
	}

	var exitErr *exec.ExitError
	if run.err != nil && !errors.As(run.err, &exitErr) {
		return errors.Wrapf(run.err, "%s", strings.Join(run.cmd.Args, " "))
	}

	return nil
}

func (c *Command) captures(ctx context.Context) (string, string, error) {
	c.mu.Lock()
	if c.stdout != nil && c.stderr != nil {
		defer c.mu.Unlock()

		return *c.stdout, *c.stderr, nil
	}
	c.mu.Unlock()

	if err := c.Wait(ctx); err != nil {
		return "", "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stdout == nil || c.stderr == nil {
		return "", "", ErrNotRun
	}

	return *c.stdout, *c.stderr, nil
}

// Output returns the captured stdout, waiting for the process if needed.
func (c *Command) Output(ctx context.Context) (string, error) {
	stdout, _, err := c.captures(ctx)

	return stdout, err
}

// Error returns the captured stderr, waiting for the process if needed.
func (c *Command) Error(ctx context.Context) (string, error) {
	_, stderr, err := c.captures(ctx)

	return stderr, err
}

// Log writes the captured stdout and stderr to path in two delimited sections
// and mirrors them to the configured writers.
func (c *Command) Log(ctx context.Context, path string) (err error) {
	stdout, stderr, err := c.captures(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create log file %s", path)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "unable to close log file %s", path)
		}
	}()

	if _, err = fmt.Fprintf(f, "%s [STDOUT] %s\n%s\n%s [STDERR] %s\n%s", logSeparator, logSeparator, stdout, logSeparator, logSeparator, stderr); err != nil {
		return errors.Wrapf(err, "unable to write log file %s", path)
	}

	if _, err = io.WriteString(c.stdoutMirror, stdout); err != nil {
		return errors.Wrap(err, "unable to mirror stdout")
	}

	if _, err = io.WriteString(c.stderrMirror, stderr); err != nil {
		return errors.Wrap(err, "unable to mirror stderr")
	}

	return nil
}

// ProcCmdSync reports whether the launched process runs the current argument
// vector. It is false when nothing has been launched.
func (c *Command) ProcCmdSync() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.inSync()
}

func (c *Command) inSync() bool {
	return c.proc != nil && slices.Equal(c.proc.cmd.Args, c.argv)
}

// Update rebuilds the argument vector from cmd. When a process was already
// launched with different arguments, the previous run is dropped and the
// command can be run again.
func (c *Command) Update(cmd string) error {
	argv, err := c.profile.Argv(cmd)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.argv = argv

	if c.proc == nil || c.inSync() {
		return nil
	}

	c.logger.Warn("new command differs from executed command, clearing previous run",
		slog.String("cmd", strings.Join(argv, " ")),
		slog.String("previous", strings.Join(c.proc.cmd.Args, " ")),
	)

	c.proc = nil
	c.stdout, c.stderr = nil, nil
	c.state = StateBuilt
	c.exitCode = -1

	return nil
}
