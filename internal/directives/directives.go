// Package directives appends the MrBayes command block that configures an
// MCMC run to a Nexus file.
package directives

import (
	"errors"
	"fmt"
	"os"
)

// Params are the mcmc settings written into the block.
type Params struct {
	NGen       int `yaml:"ngen" json:"ngen"`
	SampleFreq int `yaml:"samplefreq" json:"samplefreq"`
	PrintFreq  int `yaml:"printfreq" json:"printfreq"`
	DiagnFreq  int `yaml:"diagnfreq" json:"diagnfreq"`
}

// DefaultParams describe a typical full-length run.
func DefaultParams() Params {
	return Params{NGen: 200000, SampleFreq: 500, PrintFreq: 500, DiagnFreq: 5000}
}

// Validate rejects non-positive settings.
func (p Params) Validate() error {
	var errs []error
	check := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0 (got %d)", name, v))
		}
	}
	check("ngen", p.NGen)
	check("samplefreq", p.SampleFreq)
	check("printfreq", p.PrintFreq)
	check("diagnfreq", p.DiagnFreq)
	return errors.Join(errs...)
}

const blockTemplate = `
begin mrbayes;
    set autoclose=yes nowarn=yes;
    lset nst=6 rates=invgamma;
    mcmc ngen=%d samplefreq=%d printfreq=%d diagnfreq=%d;
    sump;
    sumt;
end;
`

// Block renders the MrBayes block for p: a GTR-style six-rate model with
// invariant sites and gamma rates, the mcmc run, then parameter and tree
// summaries.
func Block(p Params) string {
	return fmt.Sprintf(blockTemplate, p.NGen, p.SampleFreq, p.PrintFreq, p.DiagnFreq)
}

// Inject appends Block(p) to the file at path. Existing content is never
// rewritten.
func Inject(path string, p Params) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("mrbayes directives: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(Block(p)); err != nil {
		f.Close()
		return fmt.Errorf("append to %s: %w", path, err)
	}
	return f.Close()
}
