// Package mrbayes invokes MrBayes on a directive-annotated Nexus file.
package mrbayes

import (
	"context"
	"path/filepath"
	"strings"

	"phylorun/internal/toolrun"
)

// DefaultBinary is looked up on PATH.
const DefaultBinary = "mb"

// Command builds the MrBayes invocation. MrBayes writes its outputs next to
// the input path it was given, so it runs inside the file's directory with
// the bare file name; that also keeps the name under MrBayes' path limit.
// A relative binary path is made absolute first, since os/exec would
// otherwise resolve it against the run directory.
func Command(binary, nexPath string) toolrun.Command {
	if binary == "" {
		binary = DefaultBinary
	}
	if strings.ContainsRune(binary, filepath.Separator) || strings.ContainsRune(binary, '/') {
		if abs, err := filepath.Abs(binary); err == nil {
			binary = abs
		}
	}
	return toolrun.Command{
		Name:   "MrBayes",
		Binary: binary,
		Args:   []string{filepath.Base(nexPath)},
		Dir:    filepath.Dir(nexPath),
	}
}

// Infer runs MrBayes to completion. Success means a zero exit status.
func Infer(ctx context.Context, r toolrun.Runner, binary, nexPath string) error {
	_, err := toolrun.Invoke(ctx, r, Command(binary, nexPath))
	return err
}
