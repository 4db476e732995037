// Package dispatch carries engine events to the goroutine that owns the display.
package dispatch

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/simon/managectl/internal/engine"
)

const defaultCapacity = 256

// EventMsg wraps an engine event for delivery to a bubbletea Update.
type EventMsg struct {
	Event engine.Event
}

// Queue is an ordered channel from any number of producers to one consumer.
// Events are delivered in the order Emit was called. A full queue blocks
// producers until the consumer catches up or the queue is closed.
type Queue struct {
	ch        chan engine.Event
	done      chan struct{}
	closeOnce sync.Once
}

func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Queue{
		ch:   make(chan engine.Event, capacity),
		done: make(chan struct{}),
	}
}

// Emit enqueues e. Events emitted after Close are dropped.
func (q *Queue) Emit(e engine.Event) {
	select {
	case <-q.done:
		return
	default:
	}
	select {
	case q.ch <- e:
	case <-q.done:
	}
}

// Next returns a command that waits for the next event. The consumer must
// issue it again only after handling the EventMsg it produced, so exactly
// one receive is outstanding at any time.
func (q *Queue) Next() tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-q.ch:
			return EventMsg{Event: e}
		case <-q.done:
			return nil
		}
	}
}

// Events exposes the queue for consumers outside bubbletea.
func (q *Queue) Events() <-chan engine.Event {
	return q.ch
}

// Done is closed by Close.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Close stops delivery and releases blocked producers.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
