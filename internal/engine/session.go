package engine

import (
	"context"
	"time"
)

// Session is one execution of a descriptor, from launch to its terminal outcome.
type Session struct {
	ID         string
	Descriptor Descriptor
	StartedAt  time.Time

	cancel context.CancelCauseFunc
	done   chan struct{}
	result Result
}

// Cancel terminates the process. The session finishes with outcome
// Cancelled unless it already reached another outcome.
func (s *Session) Cancel() {
	s.cancel(ErrCancelled)
}

// Done is closed after the terminal events have been emitted and every
// resource of the session has been released.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session finishes and returns its result.
func (s *Session) Wait() Result {
	<-s.done
	return s.result
}

// Result returns the result if the session has finished.
func (s *Session) Result() (Result, bool) {
	select {
	case <-s.done:
		return s.result, true
	default:
		return Result{}, false
	}
}
