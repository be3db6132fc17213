// internal/writers/registry.go
package writers

import (
	"fmt"
	"io"
	"sort"

	"phylorun/internal/runlog"
)

// HistoryWriters maps an output format to its writer. Formats register
// themselves in init() blocks.
var HistoryWriters = map[string]func(w io.Writer, runs []runlog.Run) error{}

// RegisterHistory adds or replaces a format (last wins).
func RegisterHistory(format string, fn func(io.Writer, []runlog.Run) error) {
	HistoryWriters[format] = fn
}

// WriteHistory dispatches to the writer registered for format.
func WriteHistory(format string, w io.Writer, runs []runlog.Run) error {
	fn, ok := HistoryWriters[format]
	if !ok {
		return fmt.Errorf("unknown history format %q (no writer registered)", format)
	}
	return fn(w, runs)
}

// HistoryFormats lists the registered formats, sorted.
func HistoryFormats() []string {
	out := make([]string, 0, len(HistoryWriters))
	for k := range HistoryWriters {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
