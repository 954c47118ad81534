package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long output pipes are drained after a killed process.
const waitDelay = 2 * time.Second

// Command describes one subprocess invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string // KEY=VALUE pairs layered over the process environment
	Timeout time.Duration
}

// String renders the command line for logs and messages.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Output captures the result of a command. A non-zero exit is reported through
// ExitCode, not as an error.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Combined returns stdout followed by stderr.
func (o *Output) Combined() string {
	if o.Stderr == "" {
		return o.Stdout
	}
	if o.Stdout == "" {
		return o.Stderr
	}
	return o.Stdout + "\n" + o.Stderr
}

// OK reports whether the command exited zero within its timeout.
func (o *Output) OK() bool {
	return o.ExitCode == 0 && !o.TimedOut
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Output, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Command) (*Output, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, cmd Command) (*Output, error) {
	return f(ctx, cmd)
}

// Exec runs commands as real subprocesses.
type Exec struct {
	// Stdout and Stderr, when set, receive a live copy of the output.
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the command. The error return is reserved for commands that
// could not be started.
func (e *Exec) Run(ctx context.Context, c Command) (*Output, error) {
	bin, err := exec.LookPath(c.Name)
	if err != nil {
		return nil, fmt.Errorf("%s not found on PATH: %w", c.Name, err)
	}

	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, bin, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay
	if len(c.Env) > 0 {
		env := os.Environ()
		for _, kv := range c.Env {
			k, v, _ := strings.Cut(kv, "=")
			env = setEnv(env, k, v)
		}
		cmd.Env = env
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = tee(&stdoutBuf, e.Stdout)
	cmd.Stderr = tee(&stderrBuf, e.Stderr)

	err = cmd.Run()

	output := &Output{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	if c.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		output.TimedOut = true
		output.ExitCode = -1
		return output, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			output.ExitCode = exitErr.ExitCode()
			return output, nil
		}
		return output, fmt.Errorf("executing %s: %w", c.Name, err)
	}
	return output, nil
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(w, buf)
}

// setEnv sets or replaces an environment variable in the env slice.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
