// Package convert turns the aligner's FASTA output into the Nexus data block
// MrBayes reads.
package convert

import (
	"bytes"
	"fmt"
	"os"

	"phylorun/internal/fasta"
	"phylorun/internal/nexus"
	"phylorun/internal/stageerr"
)

// FastaToNexus parses afaPath and writes it to nexPath as Nexus. The FASTA
// parser cannot tell the molecule type, so the records of the first block
// are annotated as DNA; the pipeline handles DNA only.
func FastaToNexus(afaPath, nexPath string) error {
	alns, err := fasta.ReadAlignments(afaPath)
	if err != nil {
		return err
	}
	if len(alns) == 0 {
		return stageerr.EmptyInput(afaPath, "provided aligned sequences: %s is empty", afaPath)
	}
	alns[0].SetMoleculeType(fasta.DNA)

	var buf bytes.Buffer
	if err := nexus.WriteData(&buf, alns[0]); err != nil {
		return fmt.Errorf("convert %s: %w", afaPath, err)
	}
	if err := os.WriteFile(nexPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", nexPath, err)
	}
	return nil
}
