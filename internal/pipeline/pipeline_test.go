package pipeline

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"phylorun/internal/runctx"
	"phylorun/internal/stageerr"
	"phylorun/internal/tooltest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const threeSpecies = `>human
ACGTACGTTAGC
>chimp
ACGTACGATAG
>gorilla
ACGTTCGTTAGCA
`

func newRun(t *testing.T, input string) *runctx.Context {
	t.Helper()
	work := t.TempDir()
	in := filepath.Join(work, "species.fa")
	require.NoError(t, os.WriteFile(in, []byte(input), 0o644))
	rc, err := runctx.New(work, "test-run", in)
	require.NoError(t, err)
	return rc
}

type recorder struct {
	started  int
	stages   []Stage
	finished *Report
}

func (r *recorder) RunStarted(*runctx.Context, time.Time) error { r.started++; return nil }
func (r *recorder) StageFinished(_ string, res StageResult) error {
	r.stages = append(r.stages, res.Stage)
	return nil
}
func (r *recorder) RunFinished(rep *Report) error { r.finished = rep; return nil }

func TestRunProducesAllArtifacts(t *testing.T) {
	rc := newRun(t, threeSpecies)
	p := New(&tooltest.Fake{}, nil)
	p.Params.NGen = 20000
	rec := &recorder{}
	p.Observers = []Observer{rec}

	rep, err := p.Run(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, StateDone, rep.State)
	assert.Equal(t, Stage(""), rep.FailedStage)
	assert.FileExists(t, rc.Aligned)

	nex, err := os.ReadFile(rc.Nexus)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(nex), "#NEXUS"))
	assert.Contains(t, string(nex), "begin mrbayes;")
	assert.Contains(t, string(nex), "ngen=20000")

	f, err := os.Open(rc.TreeImage)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 1200, cfg.Width)
	assert.Equal(t, 800, cfg.Height)

	assert.Equal(t, 1, rec.started)
	assert.Equal(t, Stages, rec.stages)
	assert.Same(t, rep, rec.finished)
}

func TestRunStopsWhenAlignerMissing(t *testing.T) {
	rc := newRun(t, threeSpecies)
	fake := &tooltest.Fake{Missing: map[string]bool{"muscle": true}}
	core, logs := observer.New(zapcore.InfoLevel)
	p := New(fake, zap.New(core))

	rep, err := p.Run(context.Background(), rc)
	require.Error(t, err)
	assert.True(t, stageerr.IsToolInvocation(err))
	assert.Contains(t, err.Error(), "stage align")
	assert.Equal(t, StateFailed, rep.State)
	assert.Equal(t, StageAlign, rep.FailedStage)
	assert.Len(t, rep.Stages, 1)
	assert.NoFileExists(t, rc.Nexus)
	assert.Len(t, fake.Calls(), 1)
	assert.Equal(t, 1, logs.FilterMessage("stage failed").Len())
}

func TestRunEmptyAlignment(t *testing.T) {
	rc := newRun(t, "")
	p := New(&tooltest.Fake{}, nil)

	rep, err := p.Run(context.Background(), rc)
	require.Error(t, err)
	assert.True(t, stageerr.IsEmptyInput(err))
	assert.Equal(t, StageConvert, rep.FailedStage)
}

func TestRunInferenceFailureKeepsArtifacts(t *testing.T) {
	rc := newRun(t, threeSpecies)
	p := New(&tooltest.Fake{ExitCodes: map[string]int{"mb": 1}}, nil)

	rep, err := p.Run(context.Background(), rc)
	require.Error(t, err)
	assert.Equal(t, StageInfer, rep.FailedStage)
	assert.FileExists(t, rc.Aligned)
	assert.FileExists(t, rc.Nexus)
	assert.NoFileExists(t, rc.TreeImage)
}

func TestRunSanitizesBeforeInference(t *testing.T) {
	rc := newRun(t, ">Φhuman\nACGT\n>chimp\nACGA\n>gorilla\nACTT\n")
	p := New(&tooltest.Fake{}, nil)

	_, err := p.Run(context.Background(), rc)
	require.NoError(t, err)
	nex, err := os.ReadFile(rc.Nexus)
	require.NoError(t, err)
	for _, b := range nex {
		require.LessOrEqual(t, b, byte(0x7F))
	}
	assert.Contains(t, string(nex), "human")
}

func TestRunHonorsCancellation(t *testing.T) {
	rc := newRun(t, threeSpecies)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := New(&tooltest.Fake{}, nil).Run(ctx, rc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StageAlign, rep.FailedStage)
}

func TestRunBadParams(t *testing.T) {
	rc := newRun(t, threeSpecies)
	p := New(&tooltest.Fake{}, nil)
	p.Params.SampleFreq = 0

	rep, err := p.Run(context.Background(), rc)
	require.Error(t, err)
	assert.Equal(t, StageInject, rep.FailedStage)
}

func TestRunNeedsRunner(t *testing.T) {
	_, err := (&Pipeline{}).Run(context.Background(), newRun(t, threeSpecies))
	assert.Error(t, err)
}
