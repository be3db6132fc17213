package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConsoleDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Options{})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("stage started", zap.String("stage", "align"))
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "stage started")
	assert.Contains(t, out, `"stage": "align"`)
}

func TestVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Options{Level: "warn", Verbose: true})
	require.NoError(t, err)
	log.Debug("tool output")
	assert.Contains(t, buf.String(), "tool output")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Options{Format: "json"})
	require.NoError(t, err)
	log.Info("run finished", zap.String("run_id", "r1"))

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &m))
	assert.Equal(t, "run finished", m["msg"])
	assert.Equal(t, "r1", m["run_id"])
}

func TestBadOptions(t *testing.T) {
	_, err := New(&bytes.Buffer{}, Options{Level: "chatty"})
	assert.Error(t, err)
	_, err = New(&bytes.Buffer{}, Options{Format: "xml"})
	assert.Error(t, err)
}
