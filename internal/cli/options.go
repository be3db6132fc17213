// internal/cli/options.go
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"phylorun/internal/config"
)

// Flag names.
const (
	FlagFile     = "file"
	FlagNGen     = "mr_bayes_ngen"
	FlagConfig   = "config"
	FlagWorkdir  = "workdir"
	FlagRunID    = "run-id"
	FlagMuscle   = "muscle"
	FlagMrBayes  = "mrbayes"
	FlagNoLedger = "no-ledger"
	FlagVerbose  = "verbose"
	FlagVersion  = "version"
)

// Options holds all CLI flags of the root command.
type Options struct {
	// Input
	File string

	// MrBayes
	NGen int

	// Run layout
	ConfigPath string
	Workdir    string
	RunID      string
	NoLedger   bool

	// Tools
	Muscle  string
	MrBayes string

	// Misc
	Verbose bool
	Version bool

	changed map[string]bool
}

// Register wires every root flag onto fs.
func Register(fs *pflag.FlagSet, o *Options) {
	fs.StringVar(&o.File, FlagFile, "", "Concatenated fasta sequences for targeted collection of species of interest. [*]")
	fs.IntVar(&o.NGen, FlagNGen, config.CLINGen,
		"Value passed to MrBayes ngen, the number of generations to run. Kept small to save time; for a full run consider 1000000")

	fs.StringVar(&o.ConfigPath, FlagConfig, "", "YAML configuration file")
	fs.StringVar(&o.Workdir, FlagWorkdir, "", "directory holding runs/ and the run ledger [.]")
	fs.StringVar(&o.RunID, FlagRunID, "", "name of the run directory (default: random UUID)")
	fs.BoolVar(&o.NoLedger, FlagNoLedger, false, "do not record the run in the ledger")

	fs.StringVar(&o.Muscle, FlagMuscle, "", "MUSCLE executable [muscle]")
	fs.StringVar(&o.MrBayes, FlagMrBayes, "", "MrBayes executable [mb]")

	fs.BoolVarP(&o.Verbose, FlagVerbose, "v", false, "debug logging, including tool output")
	fs.BoolVar(&o.Version, FlagVersion, false, "print version and exit")
}

// Finish records which flags were given and validates them. Call it after
// fs has been parsed.
func Finish(fs *pflag.FlagSet, o *Options) error {
	o.changed = map[string]bool{}
	fs.Visit(func(f *pflag.Flag) { o.changed[f.Name] = true })

	if o.Version {
		return nil
	}
	if o.File == "" {
		return errors.New("--file is required")
	}
	if o.NGen <= 0 {
		return fmt.Errorf("--%s must be > 0 (got %d)", FlagNGen, o.NGen)
	}
	return nil
}

// Changed reports whether flag name was given on the command line.
func (o Options) Changed(name string) bool { return o.changed[name] }

// Apply overlays explicitly given flags onto cfg. --mr_bayes_ngen applies
// only when given, so a configured ngen is not silently reset to the flag
// default.
func (o Options) Apply(cfg *config.Config) {
	if o.Changed(FlagNGen) {
		cfg.MrBayes.NGen = o.NGen
	}
	if o.Workdir != "" {
		cfg.Workdir = o.Workdir
	}
	if o.Muscle != "" {
		cfg.Tools.Muscle = o.Muscle
	}
	if o.MrBayes != "" {
		cfg.Tools.MrBayes = o.MrBayes
	}
	if o.NoLedger {
		cfg.Ledger = ""
	}
}
