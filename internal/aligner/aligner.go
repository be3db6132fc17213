// Package aligner invokes MUSCLE to align the input sequences.
package aligner

import (
	"context"
	"strconv"

	"phylorun/internal/toolrun"
)

// Threads is the worker count requested from MUSCLE. It is fixed.
const Threads = 2

// DefaultBinary is looked up on PATH.
const DefaultBinary = "muscle"

// Command builds the MUSCLE invocation aligning in into out.
func Command(binary, in, out string) toolrun.Command {
	if binary == "" {
		binary = DefaultBinary
	}
	return toolrun.Command{
		Name:   "Muscle",
		Binary: binary,
		Args:   []string{"-align", in, "-output", out, "-threads", strconv.Itoa(Threads)},
	}
}

// Align runs MUSCLE and succeeds only on a zero exit status. The output file
// is not inspected.
func Align(ctx context.Context, r toolrun.Runner, binary, in, out string) error {
	_, err := toolrun.Invoke(ctx, r, Command(binary, in, out))
	return err
}
