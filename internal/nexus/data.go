package nexus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"phylorun/internal/fasta"
)

// Header is the first line of every Nexus document.
const Header = "#NEXUS"

// ErrNoMoleculeType is returned when a record was never annotated.
var ErrNoMoleculeType = errors.New("nexus: molecule type not set")

var datatypes = map[string]string{
	fasta.DNA:     "dna",
	fasta.RNA:     "rna",
	fasta.Protein: "protein",
}

// WriteData serializes aln as a Nexus data block. Every record must carry the
// same molecule type and the sequences must be of equal length.
func WriteData(w io.Writer, aln fasta.Alignment) error {
	if len(aln.Records) == 0 {
		return errors.New("nexus: alignment has no records")
	}
	nchar := aln.Len()
	if nchar < 0 {
		return errors.New("nexus: sequences are not all the same length")
	}
	mt := aln.Records[0].MoleculeType
	for _, r := range aln.Records {
		if r.MoleculeType == "" {
			return fmt.Errorf("%w for %q", ErrNoMoleculeType, r.ID)
		}
		if r.MoleculeType != mt {
			return fmt.Errorf("nexus: mixed molecule types %q and %q", mt, r.MoleculeType)
		}
	}
	datatype, ok := datatypes[mt]
	if !ok {
		return fmt.Errorf("nexus: unsupported molecule type %q", mt)
	}

	names := make([]string, len(aln.Records))
	width := 0
	for i, r := range aln.Records {
		names[i] = Quote(r.ID)
		if len(names[i]) > width {
			width = len(names[i])
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, Header)
	fmt.Fprintln(bw, "begin data;")
	fmt.Fprintf(bw, "\tdimensions ntax=%d nchar=%d;\n", len(aln.Records), nchar)
	fmt.Fprintf(bw, "\tformat datatype=%s missing=? gap=-;\n", datatype)
	fmt.Fprintln(bw, "matrix")
	for i, r := range aln.Records {
		fmt.Fprintf(bw, "%-*s %s\n", width, names[i], r.Seq)
	}
	fmt.Fprintln(bw, ";")
	fmt.Fprintln(bw, "end;")
	return bw.Flush()
}

// Quote returns name as a Nexus word, single-quoting it when it contains
// whitespace or punctuation.
func Quote(name string) string {
	if name != "" && !strings.ContainsAny(name, " \t\r\n()[]{}/\\,;:=*'\"`<>+-") {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
