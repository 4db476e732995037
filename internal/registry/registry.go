// Package registry maps action ids to the handlers that build their commands.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/simon/managectl/internal/config"
	"github.com/simon/managectl/internal/engine"
	"github.com/simon/managectl/internal/target"
)

// Action is the catalog entry shown to the user.
type Action struct {
	ID             string
	Tab            string
	Title          string
	Description    string
	Dangerous      bool
	RequiresTarget bool
	Interactive    bool
}

// Handler builds the descriptor for an action when the user commits it.
type Handler interface {
	Descriptor(t target.Target) (engine.Descriptor, error)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(t target.Target) (engine.Descriptor, error)

func (f HandlerFunc) Descriptor(t target.Target) (engine.Descriptor, error) { return f(t) }

type Entry struct {
	Action  Action
	Handler Handler
}

// Starter runs a descriptor on an output surface.
type Starter interface {
	Run(ctx context.Context, d engine.Descriptor) (*engine.Session, error)
}

// Binding is the context an action is dispatched with.
type Binding struct {
	Target  target.Target
	Starter Starter
}

// Tab groups actions for display.
type Tab struct {
	ID    string
	Title string
}

// Registry is immutable after New.
type Registry struct {
	entries map[string]Entry
	order   map[string][]string // tab id -> action ids
	tabs    []Tab
}

// New builds a registry. Entries keep their order within each tab.
func New(tabs []Tab, entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: make(map[string]Entry, len(entries)),
		order:   make(map[string][]string),
		tabs:    append([]Tab(nil), tabs...),
	}
	known := make(map[string]bool, len(tabs))
	for _, t := range tabs {
		known[t.ID] = true
	}
	for _, e := range entries {
		id := e.Action.ID
		if id == "" {
			return nil, ErrEmptyID
		}
		if _, dup := r.entries[id]; dup {
			return nil, &DuplicateActionError{ID: id}
		}
		if e.Handler == nil {
			return nil, fmt.Errorf("action %q: no handler", id)
		}
		if !known[e.Action.Tab] {
			known[e.Action.Tab] = true
			r.tabs = append(r.tabs, Tab{ID: e.Action.Tab, Title: e.Action.Tab})
		}
		r.entries[id] = e
		r.order[e.Action.Tab] = append(r.order[e.Action.Tab], id)
	}
	return r, nil
}

// FromConfig builds the registry for the catalog in cfg.
func FromConfig(cfg *config.Config) (*Registry, error) {
	var (
		tabs    []Tab
		entries []Entry
	)
	for _, tab := range cfg.Tabs {
		tabs = append(tabs, Tab{ID: tab.ID, Title: tab.Title})
		for _, a := range tab.Actions {
			entries = append(entries, Entry{
				Action: Action{
					ID:             a.ID,
					Tab:            tab.ID,
					Title:          a.Title,
					Description:    a.Description,
					Dangerous:      a.Dangerous,
					RequiresTarget: a.RequiresTarget,
					Interactive:    a.Interactive,
				},
				Handler: CommandHandler(a, cfg.Elevate),
			})
		}
	}
	return New(tabs, entries...)
}

// CommandHandler returns the handler for a configured action. "{target}"
// in the command is replaced by the target name, and actions that require
// a target run on it.
func CommandHandler(a config.ActionConfig, elevate []string) Handler {
	return HandlerFunc(func(t target.Target) (engine.Descriptor, error) {
		if a.RequiresTarget && t.IsZero() {
			return engine.Descriptor{}, fmt.Errorf("%s: %w", a.ID, ErrTargetRequired)
		}
		argv, shell := a.Words()
		for i := range argv {
			argv[i] = strings.ReplaceAll(argv[i], "{target}", t.Name)
		}
		d := engine.Descriptor{
			Argv:    argv,
			Shell:   shell,
			Elevate: a.Elevate,
			Dir:     a.Dir,
			Timeout: a.Timeout.Std(),
		}
		if a.RequiresTarget {
			d = t.Wrap(d, elevate)
		}
		return d, nil
	})
}

func (r *Registry) Tabs() []Tab {
	return append([]Tab(nil), r.tabs...)
}

// Actions returns the actions of a tab in catalog order.
func (r *Registry) Actions(tab string) []Action {
	ids := r.order[tab]
	out := make([]Action, len(ids))
	for i, id := range ids {
		out[i] = r.entries[id].Action
	}
	return out
}

func (r *Registry) Lookup(id string) (Action, error) {
	e, ok := r.entries[id]
	if !ok {
		return Action{}, &UnknownActionError{ID: id}
	}
	return e.Action, nil
}

// Resolve builds the descriptor for id on t without running it.
func (r *Registry) Resolve(id string, t target.Target) (Action, engine.Descriptor, error) {
	e, ok := r.entries[id]
	if !ok {
		return Action{}, engine.Descriptor{}, &UnknownActionError{ID: id}
	}
	d, err := e.Handler.Descriptor(t)
	if err != nil {
		return e.Action, engine.Descriptor{}, err
	}
	return e.Action, d, nil
}

// Dispatch builds the descriptor for id and starts it on the bound surface.
func (r *Registry) Dispatch(ctx context.Context, id string, b Binding) (*engine.Session, error) {
	_, d, err := r.Resolve(id, b.Target)
	if err != nil {
		return nil, err
	}
	return b.Starter.Run(ctx, d)
}
