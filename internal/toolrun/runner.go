package toolrun

import (
	"context"
	"strings"
	"time"

	"phylorun/internal/stageerr"
)

// Command describes one external program invocation.
type Command struct {
	Name   string   // human name used in logs and errors, e.g. "Muscle"
	Binary string   // executable looked up on PATH
	Args   []string // arguments, not including the binary
	Dir    string   // working directory; "" = current
}

// String renders the command line for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// Result is what a finished process left behind.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Runner executes a command to completion. The returned error is non-nil only
// when the process could not be started or waited on; a non-zero exit status
// is reported through Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, cmd Command) (Result, error)

// Run calls f(ctx, cmd).
func (f RunnerFunc) Run(ctx context.Context, cmd Command) (Result, error) { return f(ctx, cmd) }

// Check converts a start failure or a non-zero exit into a tool invocation
// error. It returns nil for a clean exit.
func Check(cmd Command, res Result, err error) error {
	name := cmd.Name
	if name == "" {
		name = cmd.Binary
	}
	if err != nil {
		return stageerr.ToolFailed(name, -1, "", err)
	}
	if res.ExitCode != 0 {
		return stageerr.ToolFailed(name, res.ExitCode, lastLines(string(res.Stderr), 5), nil)
	}
	return nil
}

// Invoke runs cmd and applies Check.
func Invoke(ctx context.Context, r Runner, cmd Command) (Result, error) {
	res, err := r.Run(ctx, cmd)
	return res, Check(cmd, res, err)
}

func lastLines(s string, n int) string {
	s = strings.TrimRight(s, "\r\n")
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
