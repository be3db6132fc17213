package toolrun

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxOutput caps how much of each stream is kept in a Result.
const DefaultMaxOutput = 64 << 10

// ExecRunner runs commands on the host with os/exec. Output lines are logged
// at info level with the tool name as they arrive, so long MrBayes runs show
// progress; the last MaxOutput bytes of each stream are
// kept in the Result.
type ExecRunner struct {
	Logger    *zap.Logger
	MaxOutput int
}

// NewExecRunner returns an ExecRunner logging to logger (nil = no logging).
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecRunner{Logger: logger, MaxOutput: DefaultMaxOutput}
}

// Run starts cmd, streams its output and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	limit := r.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}
	log = log.With(zap.String("tool", cmd.Name))

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...)
	c.Dir = cmd.Dir

	stdout, err := c.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%s: stdout pipe: %w", cmd.Binary, err)
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%s: stderr pipe: %w", cmd.Binary, err)
	}

	log.Debug("starting", zap.String("cmd", cmd.String()), zap.String("dir", cmd.Dir))
	start := time.Now()
	if err := c.Start(); err != nil {
		return Result{ExitCode: -1}, err
	}

	outTail := newTail(limit)
	errTail := newTail(limit)
	var g errgroup.Group
	g.Go(func() error { return pump(stdout, outTail, log, "stdout") })
	g.Go(func() error { return pump(stderr, errTail, log, "stderr") })
	pumpErr := g.Wait()

	waitErr := c.Wait()
	res := Result{
		ExitCode: 0,
		Stdout:   outTail.Bytes(),
		Stderr:   errTail.Bytes(),
		Duration: time.Since(start),
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			res.ExitCode = -1
			return res, waitErr
		}
		res.ExitCode = exitErr.ExitCode()
	}
	if pumpErr != nil {
		log.Warn("reading tool output", zap.Error(pumpErr))
	}
	log.Debug("finished", zap.Int("exit_code", res.ExitCode), zap.Duration("duration", res.Duration))
	return res, nil
}

func pump(r io.Reader, tail *tailBuffer, log *zap.Logger, stream string) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		tail.Write(line)
		tail.Write([]byte{'\n'})
		if len(line) > 0 {
			log.Info(string(line), zap.String("stream", stream))
		}
	}
	if err := sc.Err(); err != nil {
		// Drain so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	buf []byte
	max int
}

func newTail(limit int) *tailBuffer { return &tailBuffer{max: limit} }

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= t.max {
		t.buf = append(t.buf[:0], p[n-t.max:]...)
		return n, nil
	}
	if over := len(t.buf) + n - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

func (t *tailBuffer) Bytes() []byte { return append([]byte(nil), t.buf...) }
