package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Surface runs at most one session at a time against one sink. Starting
// a new session supersedes the active one.
type Surface struct {
	engine *Engine
	sink   Sink

	runMu sync.Mutex // serializes Run

	mu     sync.Mutex
	active *Session
}

func NewSurface(e *Engine, sink Sink) *Surface {
	return &Surface{engine: e, sink: sink}
}

// Run cancels any active session, waits until it has released its
// resources and emitted its final events, then starts d. Cancel stays
// callable while Run waits.
func (s *Surface) Run(ctx context.Context, d Descriptor) (*Session, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if old := s.Active(); old != nil {
		select {
		case <-old.Done():
		default:
			s.engine.log.WithSession(old.ID).Info("superseding running session")
			old.Cancel()
			<-old.Done()
		}
	}

	sess, err := s.engine.Start(ctx, d, s.sink)

	s.mu.Lock()
	s.active = sess
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Cancel cancels the active session. It reports false when nothing is running.
func (s *Surface) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return false
	}
	select {
	case <-s.active.Done():
		return false
	default:
	}
	s.engine.log.Debug("cancel requested", zap.String("session_id", s.active.ID))
	s.active.Cancel()
	return true
}

// Active returns the most recent session, finished or not.
func (s *Surface) Active() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Shutdown cancels the active session and waits for it to finish.
func (s *Surface) Shutdown() {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active == nil {
		return
	}
	active.Cancel()
	<-active.Done()
}
