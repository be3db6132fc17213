// Package config loads phylorun settings: built-in defaults, then an
// optional YAML file, then PHYLORUN_* environment variables. Command-line
// flags are applied last by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"phylorun/internal/aligner"
	"phylorun/internal/directives"
	"phylorun/internal/mrbayes"
	"phylorun/internal/treeplot"
)

// CLINGen is the generation count used when nothing else asks for one. It
// is far below directives.DefaultParams so a first run finishes quickly; a
// full analysis wants around 1000000.
const CLINGen = 20000

// Config holds all phylorun configuration.
type Config struct {
	// Workdir holds the runs/ directory.
	Workdir string `yaml:"workdir"`
	// Ledger is the SQLite run ledger path, relative to Workdir unless
	// absolute. "" disables the ledger.
	Ledger string `yaml:"ledger"`

	Tools   ToolsConfig       `yaml:"tools"`
	MrBayes directives.Params `yaml:"mrbayes"`
	Plot    treeplot.Options  `yaml:"plot"`
	Log     LoggingConfig     `yaml:"log"`
}

// ToolsConfig names the external binaries.
type ToolsConfig struct {
	Muscle  string `yaml:"muscle"`
	MrBayes string `yaml:"mrbayes"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// DefaultLedger is the ledger path used unless configured otherwise.
const DefaultLedger = ".phylorun/runs.db"

// Default returns the built-in configuration.
func Default() Config {
	params := directives.DefaultParams()
	params.NGen = CLINGen
	return Config{
		Workdir: ".",
		Ledger:  DefaultLedger,
		Tools:   ToolsConfig{Muscle: aligner.DefaultBinary, MrBayes: mrbayes.DefaultBinary},
		MrBayes: params,
		Plot:    treeplot.DefaultOptions(),
		Log:     LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load returns Default overlaid with the YAML file at path ("" = none) and
// the environment. Unknown YAML keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides fields from PHYLORUN_MUSCLE, PHYLORUN_MRBAYES,
// PHYLORUN_WORKDIR and PHYLORUN_LEDGER.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("PHYLORUN_MUSCLE"); ok && v != "" {
		c.Tools.Muscle = v
	}
	if v, ok := lookup("PHYLORUN_MRBAYES"); ok && v != "" {
		c.Tools.MrBayes = v
	}
	if v, ok := lookup("PHYLORUN_WORKDIR"); ok && v != "" {
		c.Workdir = v
	}
	if v, ok := lookup("PHYLORUN_LEDGER"); ok {
		c.Ledger = v
	}
}

// LedgerPath resolves Ledger against Workdir. It returns "" when the ledger
// is disabled.
func (c Config) LedgerPath() string {
	if c.Ledger == "" || filepath.IsAbs(c.Ledger) {
		return c.Ledger
	}
	return filepath.Join(c.Workdir, c.Ledger)
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Tools.Muscle == "" {
		errs = append(errs, errors.New("tools.muscle must be set"))
	}
	if c.Tools.MrBayes == "" {
		errs = append(errs, errors.New("tools.mrbayes must be set"))
	}
	if err := c.MrBayes.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Plot.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json (got %q)", c.Log.Format))
	}
	return errors.Join(errs...)
}
