package writers

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"phylorun/internal/runlog"
)

func TestUnknownHistoryFormatError(t *testing.T) {
	var b bytes.Buffer
	err := WriteHistory("nope-format", &b, nil)
	if err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "unknown history format") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestBuiltinFormatsRegistered(t *testing.T) {
	got := strings.Join(HistoryFormats(), ",")
	if got != "json,jsonl,text" {
		t.Fatalf("formats = %q", got)
	}
}

func TestRegisterLastWins(t *testing.T) {
	called := 0
	RegisterHistory("test-only", func(io.Writer, []runlog.Run) error { called = 1; return nil })
	RegisterHistory("test-only", func(io.Writer, []runlog.Run) error { called = 2; return nil })
	defer delete(HistoryWriters, "test-only")

	if err := WriteHistory("test-only", io.Discard, nil); err != nil {
		t.Fatal(err)
	}
	if called != 2 {
		t.Fatalf("want last registration to win, got %d", called)
	}
}
