package appshell

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestExecPassesThrough(t *testing.T) {
	var got []string
	code := Exec(context.Background(), func(_ context.Context, argv []string, _, _ io.Writer) int {
		got = argv
		return 2
	}, []string{"--file", "x.fa"}, io.Discard, io.Discard)
	require.Equal(t, 2, code)
	require.Equal(t, []string{"--file", "x.fa"}, got)
}

func TestExecCancelledSuccessBecomes130(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cancel()
	code := Exec(parent, func(ctx context.Context, _ []string, _, _ io.Writer) int {
		<-ctx.Done()
		return 0
	}, nil, io.Discard, io.Discard)
	require.Equal(t, 130, code)
}

func TestExecKeepsFailureCode(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cancel()
	code := Exec(parent, func(context.Context, []string, io.Writer, io.Writer) int { return 1 }, nil, io.Discard, io.Discard)
	require.Equal(t, 1, code)
}
