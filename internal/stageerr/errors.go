// Package stageerr defines the error kinds a pipeline stage can fail with.
//
// Callers match kinds with errors.Is and pull details out with errors.As:
//
//	var se *stageerr.Error
//	if errors.As(err, &se) && se.Kind == stageerr.ErrToolInvocation { ... }
package stageerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrToolInvocation marks an external program that could not be started
	// or exited with a non-zero status.
	ErrToolInvocation = errors.New("tool invocation failed")
	// ErrEmptyInput marks a file that was expected to hold data but was empty
	// or unreadable.
	ErrEmptyInput = errors.New("empty input")
)

// PathHint is appended to every tool failure.
const PathHint = "please ensure it is installed and visible within your PATH"

// Error carries a kind plus the context needed to act on it.
type Error struct {
	Kind     error
	Tool     string // set for ErrToolInvocation
	ExitCode int    // -1 when the process never ran
	Path     string // set for ErrEmptyInput
	Msg      string
	Err      error // underlying cause, if any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ToolFailed reports an external tool failure. detail is usually the tail of
// the tool's stderr and may be empty.
func ToolFailed(tool string, exitCode int, detail string, cause error) *Error {
	var msg string
	if exitCode < 0 {
		msg = fmt.Sprintf("failed to run %s, %s", tool, PathHint)
	} else {
		msg = fmt.Sprintf("failed to run %s (exit status %d), %s", tool, exitCode, PathHint)
	}
	if d := strings.TrimSpace(detail); d != "" {
		msg += "\n" + d
	}
	return &Error{Kind: ErrToolInvocation, Tool: tool, ExitCode: exitCode, Msg: msg, Err: cause}
}

// EmptyInput reports that path held no usable data.
func EmptyInput(path, format string, args ...any) *Error {
	return &Error{Kind: ErrEmptyInput, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// EmptyInputCause is EmptyInput with an underlying read error attached.
func EmptyInputCause(path string, cause error, format string, args ...any) *Error {
	e := EmptyInput(path, format, args...)
	e.Err = cause
	return e
}

// IsToolInvocation reports whether err is (or wraps) a tool failure.
func IsToolInvocation(err error) bool { return errors.Is(err, ErrToolInvocation) }

// IsEmptyInput reports whether err is (or wraps) an empty-input failure.
func IsEmptyInput(err error) bool { return errors.Is(err, ErrEmptyInput) }
