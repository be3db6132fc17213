// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"phylorun/internal/aligner"
	"phylorun/internal/convert"
	"phylorun/internal/directives"
	"phylorun/internal/mrbayes"
	"phylorun/internal/runctx"
	"phylorun/internal/sanitize"
	"phylorun/internal/toolrun"
	"phylorun/internal/treeplot"
)

// Stage names one step of the run.
type Stage string

const (
	StageAlign     Stage = "align"
	StageConvert   Stage = "convert"
	StageSanitize  Stage = "sanitize"
	StageInject    Stage = "inject"
	StageInfer     Stage = "infer"
	StageVisualize Stage = "visualize"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageAlign, StageConvert, StageSanitize, StageInject, StageInfer, StageVisualize}

// Terminal run states.
const (
	StateDone   = "done"
	StateFailed = "failed"
)

// Tools names the external binaries.
type Tools struct {
	Muscle  string
	MrBayes string
}

// StageResult records how one stage went.
type StageResult struct {
	Stage    Stage
	Duration time.Duration
	Err      error
}

// Report summarizes a run.
type Report struct {
	RunID       string
	Run         *runctx.Context
	Stages      []StageResult
	State       string
	FailedStage Stage // "" unless State == StateFailed
	Err         error
	Started     time.Time
	Finished    time.Time
}

// Pipeline holds everything a run needs besides its run context.
type Pipeline struct {
	Runner    toolrun.Runner
	Tools     Tools
	Params    directives.Params
	Plot      treeplot.Options
	Logger    *zap.Logger
	Observers []Observer
}

// New returns a Pipeline with default MrBayes parameters and plot size.
func New(r toolrun.Runner, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		Runner: r,
		Tools:  Tools{Muscle: aligner.DefaultBinary, MrBayes: mrbayes.DefaultBinary},
		Params: directives.DefaultParams(),
		Plot:   treeplot.DefaultOptions(),
		Logger: logger,
	}
}

type step struct {
	stage Stage
	run   func(ctx context.Context, rc *runctx.Context) error
}

func (p *Pipeline) steps() []step {
	return []step{
		{StageAlign, func(ctx context.Context, rc *runctx.Context) error {
			return aligner.Align(ctx, p.Runner, p.Tools.Muscle, rc.Input, rc.Aligned)
		}},
		{StageConvert, func(_ context.Context, rc *runctx.Context) error {
			return convert.FastaToNexus(rc.Aligned, rc.Nexus)
		}},
		{StageSanitize, func(_ context.Context, rc *runctx.Context) error {
			return sanitize.StripNonASCII(rc.Nexus)
		}},
		{StageInject, func(_ context.Context, rc *runctx.Context) error {
			return directives.Inject(rc.Nexus, p.Params)
		}},
		{StageInfer, func(ctx context.Context, rc *runctx.Context) error {
			return mrbayes.Infer(ctx, p.Runner, p.Tools.MrBayes, rc.Nexus)
		}},
		{StageVisualize, func(_ context.Context, rc *runctx.Context) error {
			t, err := treeplot.LoadLast(rc.TreeFile)
			if err != nil {
				return err
			}
			return treeplot.RenderFile(t, rc.TreeImage, p.Plot)
		}},
	}
}

// Run executes every stage for rc in order. On failure the returned error
// names the stage and wraps the cause; the Report is returned either way.
func (p *Pipeline) Run(ctx context.Context, rc *runctx.Context) (*Report, error) {
	if p.Runner == nil {
		return nil, fmt.Errorf("pipeline: no tool runner")
	}
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("run_id", rc.ID))

	rep := &Report{RunID: rc.ID, Run: rc, Started: time.Now()}
	p.notify(log, func(o Observer) error { return o.RunStarted(rc, rep.Started) })
	log.Info("run started", zap.String("input", rc.Input), zap.String("dir", rc.Dir))

	for _, s := range p.steps() {
		if err := ctx.Err(); err != nil {
			p.fail(log, rep, s.stage, err)
			return rep, rep.Err
		}
		log.Info("stage started", zap.String("stage", string(s.stage)))
		start := time.Now()
		err := s.run(ctx, rc)
		res := StageResult{Stage: s.stage, Duration: time.Since(start), Err: err}
		rep.Stages = append(rep.Stages, res)
		p.notify(log, func(o Observer) error { return o.StageFinished(rc.ID, res) })
		if err != nil {
			p.fail(log, rep, s.stage, err)
			return rep, rep.Err
		}
		log.Info("stage finished", zap.String("stage", string(s.stage)), zap.Duration("duration", res.Duration))
	}

	rep.State = StateDone
	rep.Finished = time.Now()
	p.notify(log, func(o Observer) error { return o.RunFinished(rep) })
	log.Info("run finished", zap.Duration("duration", rep.Finished.Sub(rep.Started)), zap.String("image", rc.TreeImage))
	return rep, nil
}

func (p *Pipeline) fail(log *zap.Logger, rep *Report, s Stage, err error) {
	rep.State = StateFailed
	rep.FailedStage = s
	rep.Err = fmt.Errorf("stage %s: %w", s, err)
	rep.Finished = time.Now()
	log.Error("stage failed", zap.String("stage", string(s)), zap.Error(err))
	p.notify(log, func(o Observer) error { return o.RunFinished(rep) })
}

func (p *Pipeline) notify(log *zap.Logger, fn func(Observer) error) {
	for _, o := range p.Observers {
		if err := fn(o); err != nil {
			log.Warn("observer failed", zap.Error(err))
		}
	}
}
