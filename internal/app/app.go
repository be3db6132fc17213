// internal/app/app.go
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"phylorun/internal/cli"
	"phylorun/internal/config"
	"phylorun/internal/logging"
	"phylorun/internal/pipeline"
	"phylorun/internal/runctx"
	"phylorun/internal/runlog"
	"phylorun/internal/toolrun"
	"phylorun/internal/version"
	"phylorun/internal/writers"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitFailed      = 1
	ExitUsage       = 2
	ExitOutput      = 3
	ExitInterrupted = 130
)

// Deps are the collaborators a test may swap out.
type Deps struct {
	// Runner runs MUSCLE and MrBayes. nil means the real binaries.
	Runner toolrun.Runner
}

// usageError is a bad command line; the failing command's usage follows it.
type usageError struct {
	cmd *cobra.Command
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// exitError carries an explicit exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func RunContext(parent context.Context, argv []string, stdout, stderr io.Writer) int {
	return RunContextWith(parent, argv, stdout, stderr, Deps{})
}

func Run(argv []string, stdout, stderr io.Writer) int {
	return RunContext(context.Background(), argv, stdout, stderr)
}

// RunContextWith executes one phylorun invocation and returns its exit code.
func RunContextWith(parent context.Context, argv []string, stdout, stderr io.Writer, deps Deps) int {
	outw := bufio.NewWriter(stdout)
	if len(argv) == 0 {
		argv = []string{"-h"}
	}

	root := newRootCmd(deps)
	root.SetArgs(argv)
	root.SetOut(outw)
	root.SetErr(stderr)

	err := root.ExecuteContext(parent)
	if err == nil {
		return writers.Flush(outw, stderr, ExitOK)
	}

	_, _ = fmt.Fprintln(stderr, "Error:", err)
	var ue *usageError
	var ee *exitError
	switch {
	case errors.As(err, &ue):
		ue.cmd.SetOut(outw)
		_ = ue.cmd.Usage()
		return writers.Flush(outw, stderr, ExitUsage)
	case errors.As(err, &ee):
		code := ee.code
		if parent.Err() != nil {
			code = ExitInterrupted
		}
		return writers.Flush(outw, stderr, code)
	default:
		return writers.Flush(outw, stderr, ExitUsage)
	}
}

func newRootCmd(deps Deps) *cobra.Command {
	var opts cli.Options
	root := &cobra.Command{
		Use:   "phylorun --file <sequences.fasta> [flags]",
		Short: "Build a phylogenetic tree from FASTA sequences with MUSCLE and MrBayes",
		Long: `phylorun aligns the sequences with MUSCLE, converts the alignment to Nexus,
appends a MrBayes block, runs MrBayes and draws the last sampled tree as a PNG.

Every run gets its own directory <workdir>/runs/<run-id>/ holding
aligned.afa, aligned.nex, the MrBayes output and last_tree.png.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.Finish(cmd.Flags(), &opts); err != nil {
				return &usageError{cmd: cmd, err: err}
			}
			if opts.Version {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "phylorun version %s\n", version.Version)
				return err
			}
			return runPipeline(cmd, opts, deps)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{cmd: cmd, err: err}
	})
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().SortFlags = false
	cli.Register(root.Flags(), &opts)

	root.AddCommand(newHistoryCmd())
	return root
}

// loadConfig applies defaults, the config file, the environment and flags,
// in that order.
func loadConfig(path string, apply func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runPipeline(cmd *cobra.Command, opts cli.Options, deps Deps) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(opts.ConfigPath, opts.Apply)
	if err != nil {
		return err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), logging.Options{
		Level: cfg.Log.Level, Format: cfg.Log.Format, Verbose: opts.Verbose,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rc, err := runctx.New(cfg.Workdir, opts.RunID, opts.File)
	if err != nil {
		if opts.RunID != "" && runctx.ValidateID(opts.RunID) != nil {
			return &usageError{cmd: cmd, err: err}
		}
		return &exitError{code: ExitFailed, err: err}
	}

	runner := deps.Runner
	if runner == nil {
		runner = toolrun.NewExecRunner(logger)
	}
	p := pipeline.New(runner, logger)
	p.Tools = pipeline.Tools{Muscle: cfg.Tools.Muscle, MrBayes: cfg.Tools.MrBayes}
	p.Params = cfg.MrBayes
	p.Plot = cfg.Plot

	if path := cfg.LedgerPath(); path != "" {
		store, err := runlog.Open(path)
		if err != nil {
			logger.Warn("run ledger unavailable", zap.String("path", path), zap.Error(err))
		} else {
			defer store.Close()
			p.Observers = append(p.Observers, store)
		}
	}

	if _, err := p.Run(ctx, rc); err != nil {
		return &exitError{code: ExitFailed, err: err}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Phylo Tree saved to %s\n", rc.TreeImage)
	return err
}

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		workdir    string
		limit      int
		format     string
	)
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, newest first, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := writers.HistoryWriters[format]; !ok {
				return &usageError{cmd: cmd, err: fmt.Errorf("--output must be one of %v (got %q)", writers.HistoryFormats(), format)}
			}
			if limit < 0 {
				return &usageError{cmd: cmd, err: fmt.Errorf("--limit must be >= 0 (got %d)", limit)}
			}
			cfg, err := loadConfig(configPath, func(c *config.Config) {
				if workdir != "" {
					c.Workdir = workdir
				}
			})
			if err != nil {
				return err
			}
			path := cfg.LedgerPath()
			if path == "" {
				return errors.New("the run ledger is disabled in the configuration")
			}
			store, err := runlog.Open(path)
			if err != nil {
				return &exitError{code: ExitFailed, err: err}
			}
			defer store.Close()

			if len(args) == 1 {
				run, err := store.Get(args[0])
				if err != nil {
					return &exitError{code: ExitFailed, err: err}
				}
				return writers.WriteHistory(format, cmd.OutOrStdout(), []runlog.Run{run})
			}
			runs, err := store.List(limit)
			if err != nil {
				return &exitError{code: ExitFailed, err: fmt.Errorf("failed to read ledger: %w", err)}
			}
			return writers.WriteHistory(format, cmd.OutOrStdout(), runs)
		},
	}
	fs := cmd.Flags()
	fs.SortFlags = false
	fs.StringVar(&configPath, cli.FlagConfig, "", "YAML configuration file")
	fs.StringVar(&workdir, cli.FlagWorkdir, "", "directory holding the run ledger [.]")
	fs.IntVar(&limit, "limit", 20, "show at most N runs (0 = all)")
	fs.StringVarP(&format, "output", "o", "text", "output format: text | json | jsonl")
	return cmd
}
