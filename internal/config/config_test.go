package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phylorun/internal/directives"
	"phylorun/internal/treeplot"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "phylorun.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func noEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PHYLORUN_MUSCLE", "PHYLORUN_MRBAYES", "PHYLORUN_WORKDIR", "PHYLORUN_LEDGER"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 20000, cfg.MrBayes.NGen)
	assert.Equal(t, 500, cfg.MrBayes.SampleFreq)
	assert.Equal(t, 500, cfg.MrBayes.PrintFreq)
	assert.Equal(t, 5000, cfg.MrBayes.DiagnFreq)
	assert.Equal(t, "muscle", cfg.Tools.Muscle)
	assert.Equal(t, "mb", cfg.Tools.MrBayes)
	assert.Equal(t, treeplot.DefaultOptions(), cfg.Plot)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	noEnv(t)
	p := writeConfig(t, `
tools:
  muscle: /opt/muscle5
mrbayes:
  ngen: 1000000
plot:
  width: 1600
log:
  level: debug
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	want := Default()
	want.Tools.Muscle = "/opt/muscle5"
	want.MrBayes = directives.Params{NGen: 1000000, SampleFreq: 500, PrintFreq: 500, DiagnFreq: 5000}
	want.Plot.Width = 1600
	want.Log.Level = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	noEnv(t)
	_, err := Load(writeConfig(t, "mrbayes:\n  ngenn: 5\n"))
	assert.Error(t, err)
}

func TestLoadEmptyFile(t *testing.T) {
	noEnv(t)
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PHYLORUN_MUSCLE":  "muscle5",
		"PHYLORUN_MRBAYES": "mb-mpi",
		"PHYLORUN_WORKDIR": "/data",
		"PHYLORUN_LEDGER":  "",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok })

	assert.Equal(t, "muscle5", cfg.Tools.Muscle)
	assert.Equal(t, "mb-mpi", cfg.Tools.MrBayes)
	assert.Equal(t, "/data", cfg.Workdir)
	assert.Equal(t, "", cfg.LedgerPath())
}

func TestLedgerPath(t *testing.T) {
	cfg := Default()
	cfg.Workdir = "/work"
	assert.Equal(t, filepath.Join("/work", ".phylorun", "runs.db"), cfg.LedgerPath())
	cfg.Ledger = "/var/lib/phylorun.db"
	assert.Equal(t, "/var/lib/phylorun.db", cfg.LedgerPath())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.MrBayes.NGen = 0
	cfg.Plot.Height = 10
	cfg.Log.Format = "xml"
	cfg.Log.Level = "loud"
	cfg.Tools.Muscle = ""

	err := cfg.Validate()
	require.Error(t, err)
	for _, s := range []string{"ngen", "plot size", "log.format", "log.level", "tools.muscle"} {
		assert.Contains(t, err.Error(), s)
	}
}
