// Package status tracks the progress indicator of an output surface.
package status

import "fmt"

type Status int

const (
	Idle Status = iota
	Running
	Success
	Failed
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Terminal reports whether s is a final state for a session.
func (s Status) Terminal() bool {
	return s == Success || s == Failed
}

// TransitionError is returned for a move the machine does not allow.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// Machine is the status of one display surface. It is not safe for
// concurrent use; only the goroutine that owns the display mutates it.
type Machine struct {
	current Status
}

func (m *Machine) Current() Status { return m.current }

// Transition moves to the given state. Idle may go to Running, or straight
// to Failed when a launch fails; Running may only finish.
func (m *Machine) Transition(to Status) error {
	ok := false
	switch m.current {
	case Idle:
		ok = to == Running || to == Failed
	case Running:
		ok = to.Terminal()
	}
	if !ok {
		return &TransitionError{From: m.current, To: to}
	}
	m.current = to
	return nil
}

// Reset returns the machine to Idle when the surface is cleared.
func (m *Machine) Reset() {
	m.current = Idle
}
