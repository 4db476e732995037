package engine

import (
	"github.com/simon/managectl/internal/normalize"
	"github.com/simon/managectl/internal/status"
)

// Event is something a session reports to its display. Events of one
// session arrive in this order: Started, StatusChanged(Running), any
// number of LineEmitted, StatusChanged(terminal), Finished. A launch
// failure skips Running and the lines.
type Event interface {
	SessionID() string
}

// Started opens a new session; the display clears its output.
type Started struct {
	Session    string
	Descriptor Descriptor
}

type LineEmitted struct {
	Session string
	Line    normalize.Line
}

type StatusChanged struct {
	Session string
	Status  status.Status
}

type Finished struct {
	Session string
	Result  Result
}

func (e Started) SessionID() string       { return e.Session }
func (e LineEmitted) SessionID() string   { return e.Session }
func (e StatusChanged) SessionID() string { return e.Session }
func (e Finished) SessionID() string      { return e.Session }

// Sink receives session events from background goroutines.
type Sink interface {
	Emit(Event)
}
