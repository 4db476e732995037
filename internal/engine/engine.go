// Package engine launches commands and streams their output as ordered events.
package engine

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simon/managectl/internal/logger"
	"github.com/simon/managectl/internal/normalize"
	"github.com/simon/managectl/internal/status"
)

const (
	defaultPollInterval = 50 * time.Millisecond
	defaultChunkSize    = 512
	defaultDrainGrace   = 500 * time.Millisecond
)

// Config tunes the engine. Zero values pick the defaults.
type Config struct {
	Launcher     Launcher
	Timeout      time.Duration // applied when a descriptor sets none; zero disables
	PollInterval time.Duration
	ChunkSize    int
	// DrainGrace bounds how long output is still read after the process
	// exits while something else keeps the stream open.
	DrainGrace time.Duration
}

// Engine starts execution sessions.
type Engine struct {
	cfg  Config
	norm *normalize.Normalizer
	log  *logger.Logger

	wrapOutput func(io.Reader) io.Reader // test hook around the child's stream
}

func New(cfg Config, norm *normalize.Normalizer, log *logger.Logger) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.DrainGrace <= 0 {
		cfg.DrainGrace = defaultDrainGrace
	}
	if norm == nil {
		norm = normalize.New(normalize.Options{})
	}
	if log == nil {
		log = logger.Default()
	}
	return &Engine{cfg: cfg, norm: norm, log: log}
}

// Launcher returns the engine's process launcher.
func (e *Engine) Launcher() *Launcher {
	return &e.cfg.Launcher
}

// Start launches d and streams its events to sink. Started and
// StatusChanged(Running) are emitted before Start returns. If the launch
// fails, Failed and Finished are emitted instead of Running and the launch
// error is returned.
func (e *Engine) Start(ctx context.Context, d Descriptor, sink Sink) (*Session, error) {
	d = d.Clone()
	id := uuid.NewString()
	log := e.log.WithSession(id)
	startedAt := time.Now()

	sink.Emit(Started{Session: id, Descriptor: d})

	proc, err := e.cfg.Launcher.Launch(d)
	if err != nil {
		res := Result{
			Session:    id,
			Outcome:    launchOutcome(err),
			Err:        err,
			StartedAt:  startedAt,
			FinishedAt: time.Now(),
		}
		log.Warn("launch failed", zap.Strings("argv", d.Argv), zap.Error(err))
		sink.Emit(StatusChanged{Session: id, Status: status.Failed})
		sink.Emit(Finished{Session: id, Result: res})
		return nil, err
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = e.cfg.Timeout
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	s := &Session{
		ID:         id,
		Descriptor: d,
		StartedAt:  startedAt,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	log.Info("session started",
		zap.Strings("argv", d.Argv),
		zap.Int("pid", proc.Pid()),
		zap.Bool("pty", proc.PTY()),
		zap.Duration("timeout", timeout))

	sink.Emit(StatusChanged{Session: id, Status: status.Running})
	go e.run(runCtx, s, proc, sink, timeout, log)
	return s, nil
}

// run owns proc until the session finishes. Every exit path reaps the
// process and closes its stream before the terminal events go out.
func (e *Engine) run(ctx context.Context, s *Session, proc *Process, sink Sink, timeout time.Duration, log *logger.Logger) {
	defer close(s.done)
	defer s.cancel(nil)

	readCtx := ctx
	if timeout > 0 {
		var stop context.CancelFunc
		readCtx, stop = context.WithTimeout(ctx, timeout)
		defer stop()
	}

	go func() { _, _ = proc.Wait() }()

	// Killing the group closes the child side of the stream, which also
	// wakes a read the poller cannot interrupt.
	go func() {
		select {
		case <-readCtx.Done():
			if err := proc.Terminate(); err != nil {
				log.Debug("terminate failed", zap.Error(err))
			}
		case <-proc.Exited():
		}
	}()

	var out io.Reader = proc.Output()
	if e.wrapOutput != nil {
		out = e.wrapOutput(out)
	}

	lines := 0
	lr := newLineReader(out, e.cfg, func(l rawLine) {
		for _, nl := range e.norm.Normalize(l.Text) {
			sink.Emit(LineEmitted{Session: s.ID, Line: nl})
			lines++
		}
	})
	readErr := lr.run(readCtx, proc.Exited())

	res := Result{Session: s.ID, StartedAt: s.StartedAt}
	if readErr != nil {
		if err := proc.Terminate(); err != nil {
			log.Debug("terminate failed", zap.Error(err))
		}
	}
	code, waitErr := proc.Wait()

	switch {
	case readErr == nil && waitErr != nil:
		res.Outcome, res.Err = SpawnError, waitErr
	case readErr == nil && code == 0:
		res.Outcome = Success
	case readErr == nil:
		res.Outcome, res.ExitCode, res.Err = NonZeroExit, code, &ExitError{Code: code}
	case errors.Is(readErr, ErrStreamRead):
		res.Outcome, res.Err = StreamReadError, readErr
	default:
		res.Outcome, res.Err = interruption(readCtx)
	}

	lr.close()
	if err := proc.Close(); err != nil {
		log.Debug("closing output stream", zap.Error(err))
	}

	res.Lines = lines
	res.FinishedAt = time.Now()
	s.result = res

	log.Info("session finished",
		zap.String("outcome", res.Outcome.String()),
		zap.Int("code", res.Code()),
		zap.Int("lines", lines),
		zap.Duration("elapsed", res.Duration()))

	sink.Emit(StatusChanged{Session: s.ID, Status: res.Status()})
	sink.Emit(Finished{Session: s.ID, Result: res})
}

// interruption tells a timeout from a cancellation by the context's cause.
func interruption(ctx context.Context) (Outcome, error) {
	cause := context.Cause(ctx)
	if errors.Is(cause, context.DeadlineExceeded) && !errors.Is(cause, ErrCancelled) {
		return Timeout, ErrTimeout
	}
	return Cancelled, ErrCancelled
}
