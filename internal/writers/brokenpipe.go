package writers

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"syscall"
)

// IsBrokenPipe reports whether an error is a broken pipe / closed pipe.
// Useful when downstream consumers (like `head`) close early.
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}

// Flush flushes w and maps the outcome to an exit code: code on success or
// broken pipe, 3 (after reporting to stderr) on any other write error.
func Flush(w *bufio.Writer, stderr io.Writer, code int) int {
	err := w.Flush()
	switch {
	case err == nil, IsBrokenPipe(err):
		return code
	default:
		_, _ = fmt.Fprintln(stderr, err)
		return 3
	}
}
