package runlog

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phylorun/internal/pipeline"
	"phylorun/internal/runctx"
	"phylorun/internal/stageerr"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func runContext(t *testing.T, id string) *runctx.Context {
	t.Helper()
	rc, err := runctx.New(t.TempDir(), id, "species.fa")
	require.NoError(t, err)
	return rc
}

func TestLedgerLifecycle(t *testing.T) {
	s := openStore(t)
	rc := runContext(t, "r1")
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.RunStarted(rc, start))
	got, err := s.Get("r1")
	require.NoError(t, err)
	assert.Equal(t, StateRunning, got.State)
	assert.True(t, got.Finished.IsZero())

	require.NoError(t, s.StageFinished("r1", pipeline.StageResult{Stage: pipeline.StageAlign, Duration: 2 * time.Second}))
	cause := stageerr.EmptyInput(rc.Aligned, "empty")
	require.NoError(t, s.StageFinished("r1", pipeline.StageResult{Stage: pipeline.StageConvert, Duration: time.Millisecond, Err: cause}))
	require.NoError(t, s.RunFinished(&pipeline.Report{
		RunID: "r1", State: pipeline.StateFailed, FailedStage: pipeline.StageConvert,
		Err: cause, Finished: start.Add(3 * time.Second),
	}))

	got, err = s.Get("r1")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateFailed, got.State)
	assert.Equal(t, "convert", got.FailedStage)
	assert.Equal(t, rc.TreeImage, got.Image)
	assert.True(t, got.Started.Equal(start))
	assert.Equal(t, 3*time.Second, got.Finished.Sub(got.Started))
	require.Len(t, got.Stages, 2)
	assert.Equal(t, "align", got.Stages[0].Stage)
	assert.Equal(t, 2*time.Second, got.Stages[0].Duration)
	assert.Contains(t, got.Stages[1].Error, "empty input")
}

func TestListNewestFirst(t *testing.T) {
	s := openStore(t)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, s.RunStarted(runContext(t, id), base.Add(time.Duration(i)*time.Hour+time.Duration(i)*time.Millisecond)))
	}

	runs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	runs, err = s.List(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "new", runs[0].ID)
}

func TestRestartReplacesRun(t *testing.T) {
	s := openStore(t)
	rc := runContext(t, "again")
	require.NoError(t, s.RunStarted(rc, time.Now()))
	require.NoError(t, s.StageFinished("again", pipeline.StageResult{Stage: pipeline.StageAlign}))
	require.NoError(t, s.RunStarted(rc, time.Now()))

	got, err := s.Get("again")
	require.NoError(t, err)
	assert.Empty(t, got.Stages)
}

func TestUnknownRun(t *testing.T) {
	s := openStore(t)
	_, err := s.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	err = s.RunFinished(&pipeline.Report{RunID: "missing", State: pipeline.StateDone})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RunStarted(runContext(t, "persisted"), time.Now()))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "persisted", runs[0].ID)
}
