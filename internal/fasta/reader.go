// internal/fasta/reader.go
package fasta

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	biofasta "github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

// Molecule types understood by the Nexus writer.
const (
	DNA     = "DNA"
	RNA     = "RNA"
	Protein = "protein"
)

// Record is one FASTA entry.
type Record struct {
	ID           string
	Desc         string
	Seq          []byte
	MoleculeType string // "" until a caller annotates it
}

// Alignment is a block of records that share one column layout.
type Alignment struct {
	Records []Record
}

// Len returns the common sequence length, or -1 when the records disagree.
func (a Alignment) Len() int {
	if len(a.Records) == 0 {
		return 0
	}
	n := len(a.Records[0].Seq)
	for _, r := range a.Records[1:] {
		if len(r.Seq) != n {
			return -1
		}
	}
	return n
}

// SetMoleculeType annotates every record in the block.
func (a *Alignment) SetMoleculeType(mt string) {
	for i := range a.Records {
		a.Records[i].MoleculeType = mt
	}
}

// ReadAll parses every record in path ('-' = stdin, *.gz = gzip).
func ReadAll(path string) ([]Record, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Parse(rc)
}

// Parse reads FASTA records from r.
func Parse(r io.Reader) ([]Record, error) {
	sc := seqio.NewScanner(biofasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNAgapped)))
	var recs []Record
	for sc.Next() {
		s, ok := sc.Seq().(*linear.Seq)
		if !ok {
			return nil, fmt.Errorf("fasta: unexpected sequence type %T", sc.Seq())
		}
		recs = append(recs, Record{
			ID:   s.Name(),
			Desc: s.Description(),
			Seq:  lettersToBytes(s.Seq),
		})
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("fasta: %w", err)
	}
	return recs, nil
}

// ReadAlignments parses path as aligned FASTA. A FASTA file carries at most
// one alignment block; a file without records yields none.
func ReadAlignments(path string) ([]Alignment, error) {
	recs, err := ReadAll(path)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	aln := Alignment{Records: recs}
	if aln.Len() < 0 {
		return nil, fmt.Errorf("fasta: %s: sequences are not all the same length", path)
	}
	return []Alignment{aln}, nil
}

func lettersToBytes(ls alphabet.Letters) []byte {
	b := make([]byte, len(ls))
	for i, l := range ls {
		b[i] = byte(l)
	}
	return b
}

/* ---------------- small helpers ---------------- */

func openReader(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			fh.Close()
			return nil, err
		}
		return struct {
			io.Reader
			io.Closer
		}{Reader: gr, Closer: fh}, nil
	}
	return fh, nil
}
