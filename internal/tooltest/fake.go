// Package tooltest provides a stand-in for MUSCLE and MrBayes so the
// pipeline can be exercised without either installed.
package tooltest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"phylorun/internal/fasta"
	"phylorun/internal/runctx"
	"phylorun/internal/toolrun"
)

// Fake implements toolrun.Runner. The aligner pads every input sequence with
// gaps to a common length; MrBayes checks the Nexus file the way the real
// tool would choke on it, then writes two sampled trees per run.
type Fake struct {
	// Missing lists binaries that fail to start, as if absent from PATH.
	Missing map[string]bool
	// ExitCodes forces an exit status per binary.
	ExitCodes map[string]int

	mu    sync.Mutex
	calls []toolrun.Command
}

// Calls returns the commands run so far.
func (f *Fake) Calls() []toolrun.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]toolrun.Command(nil), f.calls...)
}

// Run dispatches on cmd.Name.
func (f *Fake) Run(_ context.Context, cmd toolrun.Command) (toolrun.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if f.Missing[cmd.Binary] {
		return toolrun.Result{ExitCode: -1}, &exec.Error{Name: cmd.Binary, Err: exec.ErrNotFound}
	}
	if code, ok := f.ExitCodes[cmd.Binary]; ok && code != 0 {
		return toolrun.Result{ExitCode: code, Stderr: []byte(cmd.Binary + ": forced failure\n")}, nil
	}
	switch cmd.Name {
	case "Muscle":
		return align(cmd)
	case "MrBayes":
		return infer(cmd)
	}
	return toolrun.Result{ExitCode: 127, Stderr: []byte("unknown tool " + cmd.Name)}, nil
}

func failed(format string, args ...any) (toolrun.Result, error) {
	return toolrun.Result{ExitCode: 1, Stderr: []byte(fmt.Sprintf(format, args...))}, nil
}

func align(cmd toolrun.Command) (toolrun.Result, error) {
	var in, out string
	for i := 0; i+1 < len(cmd.Args); i++ {
		switch cmd.Args[i] {
		case "-align":
			in = cmd.Args[i+1]
		case "-output":
			out = cmd.Args[i+1]
		}
	}
	if in == "" || out == "" {
		return failed("usage: muscle -align in -output out")
	}
	recs, err := fasta.ReadAll(in)
	if err != nil {
		return failed("cannot read %s: %v", in, err)
	}
	width := 0
	for _, r := range recs {
		if len(r.Seq) > width {
			width = len(r.Seq)
		}
	}
	var buf bytes.Buffer
	for _, r := range recs {
		fmt.Fprintf(&buf, ">%s\n%s%s\n", r.ID, bytes.ToUpper(r.Seq), strings.Repeat("-", width-len(r.Seq)))
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return failed("cannot write %s: %v", out, err)
	}
	return toolrun.Result{Stdout: []byte(fmt.Sprintf("aligned %d sequences\n", len(recs)))}, nil
}

func infer(cmd toolrun.Command) (toolrun.Result, error) {
	if len(cmd.Args) != 1 {
		return failed("usage: mb file.nex")
	}
	nex := filepath.Join(cmd.Dir, cmd.Args[0])
	data, err := os.ReadFile(nex)
	if err != nil {
		return failed("could not open %s", nex)
	}
	for _, b := range data {
		if b > 0x7F {
			return failed("unknown character in %s", nex)
		}
	}
	if !bytes.Contains(data, []byte("begin mrbayes;")) {
		return failed("no mrbayes block in %s", nex)
	}
	taxa := matrixTaxa(string(data))
	if len(taxa) < 2 {
		return failed("need at least 2 taxa")
	}
	for run := 1; run <= 2; run++ {
		if err := os.WriteFile(runctx.RunTreePath(nex, run), []byte(treeFile(taxa, run)), 0o644); err != nil {
			return failed("write trees: %v", err)
		}
	}
	return toolrun.Result{Stdout: []byte("Analysis completed.\n")}, nil
}

// matrixTaxa lists the first word of every line between "matrix" and ";".
func matrixTaxa(doc string) []string {
	var taxa []string
	in := false
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.EqualFold(line, "matrix"):
			in = true
		case in && line == ";":
			return taxa
		case in && line != "":
			taxa = append(taxa, strings.Fields(line)[0])
		}
	}
	return taxa
}

// treeFile renders a caterpillar tree over taxa, sampled twice.
func treeFile(taxa []string, run int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#NEXUS\n[ID: fake run %d]\nbegin trees;\n   translate\n", run)
	for i, tx := range taxa {
		sep := ","
		if i == len(taxa)-1 {
			sep = ";"
		}
		fmt.Fprintf(&b, "       %d %s%s\n", i+1, tx, sep)
	}
	for gen, scale := range []float64{1, 0.5} {
		n := len(taxa)
		nwk := fmt.Sprintf("%d:%e", 1, 0.005*scale)
		for i := 2; i < n; i++ {
			nwk = fmt.Sprintf("(%s,%d:%e):%e", nwk, i, 0.13*scale*float64(i), 0.02*scale)
		}
		nwk = fmt.Sprintf("(%s,%d:%e)", nwk, n, 0.13*scale*float64(n))
		fmt.Fprintf(&b, "   tree gen.%d = [&U] %s;\n", gen*500, nwk)
	}
	b.WriteString("end;\n")
	return b.String()
}
