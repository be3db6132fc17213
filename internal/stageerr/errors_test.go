package stageerr

import (
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolFailedKinds(t *testing.T) {
	err := fmt.Errorf("stage align: %w", ToolFailed("muscle", 1, "  bad input\n", nil))

	assert.True(t, IsToolInvocation(err))
	assert.False(t, IsEmptyInput(err))

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "muscle", se.Tool)
	assert.Equal(t, 1, se.ExitCode)
	assert.Contains(t, err.Error(), "exit status 1")
	assert.Contains(t, err.Error(), PathHint)
	assert.Contains(t, err.Error(), "bad input")
}

func TestToolFailedKeepsCause(t *testing.T) {
	err := ToolFailed("mb", -1, "", exec.ErrNotFound)

	assert.True(t, errors.Is(err, exec.ErrNotFound))
	assert.True(t, errors.Is(err, ErrToolInvocation))
	assert.NotContains(t, err.Error(), "exit status")
}

func TestEmptyInput(t *testing.T) {
	err := EmptyInput("aligned.afa", "provided aligned sequences: %s is empty", "aligned.afa")
	assert.True(t, IsEmptyInput(err))
	assert.Equal(t, "empty input: provided aligned sequences: aligned.afa is empty", err.Error())

	cause := errors.New("permission denied")
	err = EmptyInputCause("x.nex", cause, "failed to read %s", "x.nex")
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "x.nex", err.Path)
}

func TestNilErrorString(t *testing.T) {
	var e *Error
	assert.Equal(t, "", e.Error())
}
