package tui

import (
	"context"

	"go.uber.org/zap"

	"github.com/simon/managectl/internal/engine"
	"github.com/simon/managectl/internal/logger"
	"github.com/simon/managectl/internal/registry"
)

const runQueueSize = 8

// Surface is the output surface the model drives. *engine.Surface
// satisfies it.
type Surface interface {
	registry.Starter
	Cancel() bool
}

// runner starts descriptors one at a time, in submission order, off the
// UI goroutine. Starting may wait for a superseded session to drain
// through the queue that only the UI goroutine consumes.
type runner struct {
	surface Surface
	reqs    chan engine.Descriptor
	log     *logger.Logger
}

func newRunner(s Surface, log *logger.Logger) *runner {
	r := &runner{
		surface: s,
		reqs:    make(chan engine.Descriptor, runQueueSize),
		log:     log,
	}
	go r.loop()
	return r
}

func (r *runner) loop() {
	for d := range r.reqs {
		// Launch failures arrive as events; the error is only logged here.
		if _, err := r.surface.Run(context.Background(), d); err != nil {
			r.log.Debug("run failed", zap.Strings("argv", d.Argv), zap.Error(err))
		}
	}
}

// submit queues d. It reports false when too many runs are already waiting.
func (r *runner) submit(d engine.Descriptor) bool {
	select {
	case r.reqs <- d:
		return true
	default:
		return false
	}
}
