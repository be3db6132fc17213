// Package runctx lays out the per-run working directory. Every run owns
// <workdir>/runs/<run-id>/ so two runs in the same workdir never share files.
package runctx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Artifact file names inside a run directory.
const (
	AlignedFASTA = "aligned.afa"
	NexusFile    = "aligned.nex"
	TreeImage    = "last_tree.png"

	// TreeRun is the MrBayes run whose sampled trees are plotted.
	TreeRun = 2
)

// Context holds the identity and file layout of a single pipeline run.
type Context struct {
	ID  string
	Dir string

	Input     string // user supplied FASTA, absolute
	Aligned   string // aligner output
	Nexus     string // converter output, mutated by sanitize/inject
	TreeFile  string // MrBayes sampled trees for TreeRun
	TreeImage string // rendered PNG
}

// NewID returns a fresh random run id.
func NewID() string { return uuid.NewString() }

// New creates the run directory under workdir and returns its layout.
// An empty id is replaced by a random UUID.
func New(workdir, id, input string) (*Context, error) {
	if id == "" {
		id = NewID()
	}
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if workdir == "" {
		workdir = "."
	}
	absWork, err := filepath.Abs(workdir)
	if err != nil {
		return nil, fmt.Errorf("resolve workdir: %w", err)
	}
	absIn := input
	if input != "" && input != "-" {
		if absIn, err = filepath.Abs(input); err != nil {
			return nil, fmt.Errorf("resolve input: %w", err)
		}
	}

	dir := filepath.Join(absWork, "runs", id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	nex := filepath.Join(dir, NexusFile)
	return &Context{
		ID:        id,
		Dir:       dir,
		Input:     absIn,
		Aligned:   filepath.Join(dir, AlignedFASTA),
		Nexus:     nex,
		TreeFile:  RunTreePath(nex, TreeRun),
		TreeImage: filepath.Join(dir, TreeImage),
	}, nil
}

// RunTreePath is MrBayes' naming convention for the sampled trees of one run.
func RunTreePath(nexPath string, run int) string {
	return fmt.Sprintf("%s.run%d.t", nexPath, run)
}

// ValidateID rejects ids that are not a single, plain path element.
func ValidateID(id string) error {
	switch {
	case id == "", id == ".", id == "..":
		return fmt.Errorf("invalid run id %q", id)
	case strings.ContainsAny(id, `/\`+"\x00"):
		return fmt.Errorf("invalid run id %q: must not contain path separators", id)
	}
	return nil
}
