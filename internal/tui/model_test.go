package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simon/managectl/internal/config"
	"github.com/simon/managectl/internal/dispatch"
	"github.com/simon/managectl/internal/engine"
	"github.com/simon/managectl/internal/normalize"
	"github.com/simon/managectl/internal/registry"
	"github.com/simon/managectl/internal/status"
	"github.com/simon/managectl/internal/target"
)

type fakeSurface struct {
	mu        sync.Mutex
	runs      []engine.Descriptor
	started   chan engine.Descriptor
	cancelled int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{started: make(chan engine.Descriptor, 8)}
}

func (f *fakeSurface) Run(_ context.Context, d engine.Descriptor) (*engine.Session, error) {
	f.mu.Lock()
	f.runs = append(f.runs, d)
	f.mu.Unlock()
	f.started <- d
	return &engine.Session{Descriptor: d}, nil
}

func (f *fakeSurface) Cancel() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
	return true
}

func (f *fakeSurface) awaitRun(t *testing.T) engine.Descriptor {
	t.Helper()
	select {
	case d := <-f.started:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("no run submitted")
		return engine.Descriptor{}
	}
}

func (f *fakeSurface) assertNoRun(t *testing.T) {
	t.Helper()
	select {
	case d := <-f.started:
		t.Fatalf("unexpected run %v", d.Argv)
	case <-time.After(50 * time.Millisecond):
	}
}

func testModel(t *testing.T, surface Surface) Model {
	t.Helper()
	cfg, err := config.Parse([]byte(`
tabs:
  - id: system
    actions:
      - id: uptime
        title: Uptime
        argv: [uptime]
      - id: reboot
        title: Reboot
        argv: [systemctl, reboot]
        dangerous: true
      - id: switch
        title: Switch
        argv: [nixos-rebuild, switch, --flake, ".#{target}"]
        requires_target: true
  - id: git
    actions:
      - id: git-status
        title: Status
        argv: [git, status]
`))
	require.NoError(t, err)
	reg, err := registry.FromConfig(cfg)
	require.NoError(t, err)

	q := dispatch.New(16)
	t.Cleanup(q.Close)

	m := NewModel(Options{
		Registry: reg,
		Surface:  surface,
		Queue:    q,
		Targets:  []target.Target{{Name: "laptop"}, {Name: "superheavy"}},
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func apply(m Model, events ...engine.Event) Model {
	for _, e := range events {
		updated, _ := m.Update(dispatch.EventMsg{Event: e})
		m = updated.(Model)
	}
	return m
}

func texts(m Model) []string {
	var out []string
	for _, e := range m.out.entries {
		out = append(out, e.line.Text)
	}
	return out
}

func TestModel_RunsSafeActionImmediately(t *testing.T) {
	surface := newFakeSurface()
	m := testModel(t, surface)

	m = press(t, m, "enter")
	d := surface.awaitRun(t)
	assert.Equal(t, []string{"uptime"}, d.Argv)
	require.Len(t, m.pending, 1)
	assert.Equal(t, "uptime", m.pending[0].action.ID)
}

func TestModel_DangerousActionNeedsConfirmation(t *testing.T) {
	surface := newFakeSurface()
	m := testModel(t, surface)

	m = press(t, m, "j", "enter")
	rec, armed := m.gate.Armed()
	require.True(t, armed)
	assert.Equal(t, "reboot", rec.ID)
	assert.Contains(t, m.View(), "Run 'Reboot'?")
	surface.assertNoRun(t)

	m = press(t, m, "enter")
	assert.Equal(t, []string{"systemctl", "reboot"}, surface.awaitRun(t).Argv)
	_, armed = m.gate.Armed()
	assert.False(t, armed)
}

func TestModel_NavigationDisarms(t *testing.T) {
	tests := []struct {
		name string
		keys []string
	}{
		{name: "cursor move", keys: []string{"k", "j"}},
		{name: "tab change", keys: []string{"tab", "1", "j"}},
		{name: "target cycle", keys: []string{"m"}},
		{name: "escape", keys: []string{"esc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := newFakeSurface()
			m := testModel(t, surface)

			m = press(t, m, "j", "enter")
			_, armed := m.gate.Armed()
			require.True(t, armed)

			m = press(t, m, tt.keys...)
			_, armed = m.gate.Armed()
			assert.False(t, armed)

			// The next selection arms again instead of running.
			m = press(t, m, "enter")
			_, armed = m.gate.Armed()
			assert.True(t, armed)
			surface.assertNoRun(t)
		})
	}
}

func TestModel_TargetSubstitution(t *testing.T) {
	surface := newFakeSurface()
	m := testModel(t, surface)

	m = press(t, m, "m", "j", "j", "enter")
	assert.Equal(t, []string{"nixos-rebuild", "switch", "--flake", ".#superheavy"}, surface.awaitRun(t).Argv)
	require.Len(t, m.pending, 1)
	assert.Equal(t, "superheavy", m.pending[0].target)
}

func TestModel_AppliesEventsInOrder(t *testing.T) {
	m := testModel(t, newFakeSurface())
	m = press(t, m, "enter")

	d := engine.Descriptor{Argv: []string{"uptime"}}
	m = apply(m,
		engine.Started{Session: "s1", Descriptor: d},
		engine.StatusChanged{Session: "s1", Status: status.Running},
		engine.LineEmitted{Session: "s1", Line: normalize.Line{Text: "up 3 days"}},
		engine.LineEmitted{Session: "s1", Line: normalize.Line{Text: "error: nope", Class: normalize.Error}},
	)
	assert.Equal(t, status.Running, m.status.Current())
	assert.Empty(t, m.pending)
	assert.Equal(t, []string{"▶ Uptime", "$ uptime", "", "up 3 days", "error: nope"}, texts(m))

	now := time.Now()
	m = apply(m,
		engine.StatusChanged{Session: "s1", Status: status.Success},
		engine.Finished{Session: "s1", Result: engine.Result{Session: "s1", Outcome: engine.Success, StartedAt: now, FinishedAt: now}},
	)
	assert.Equal(t, status.Success, m.status.Current())
	got := texts(m)
	assert.Equal(t, "✓ Command completed successfully", got[len(got)-1])
	assert.Equal(t, 0, m.lastRuns["uptime"].ExitCode)
}

func TestModel_IgnoresStaleSessions(t *testing.T) {
	m := testModel(t, newFakeSurface())
	m = apply(m,
		engine.Started{Session: "s1", Descriptor: engine.Descriptor{Argv: []string{"a"}}},
		engine.StatusChanged{Session: "s1", Status: status.Running},
		engine.Started{Session: "s2", Descriptor: engine.Descriptor{Argv: []string{"b"}}},
		engine.LineEmitted{Session: "s1", Line: normalize.Line{Text: "late"}},
		engine.StatusChanged{Session: "s1", Status: status.Failed},
	)
	assert.Equal(t, status.Idle, m.status.Current())
	assert.NotContains(t, texts(m), "late")
}

func TestModel_LaunchFailure(t *testing.T) {
	m := testModel(t, newFakeSurface())
	m = apply(m,
		engine.Started{Session: "s1", Descriptor: engine.Descriptor{Argv: []string{"nope"}}},
		engine.StatusChanged{Session: "s1", Status: status.Failed},
		engine.Finished{Session: "s1", Result: engine.Result{Session: "s1", Outcome: engine.ExecNotFound, Err: engine.ErrExecNotFound}},
	)
	assert.Equal(t, status.Failed, m.status.Current())
	assert.Contains(t, strings.Join(texts(m), "\n"), "Make sure the command is installed")
}

func TestModel_CancelAndClear(t *testing.T) {
	surface := newFakeSurface()
	m := testModel(t, surface)

	m = press(t, m, "x")
	assert.Equal(t, 1, surface.cancelled)

	m = apply(m,
		engine.Started{Session: "s1", Descriptor: engine.Descriptor{Argv: []string{"true"}}},
		engine.StatusChanged{Session: "s1", Status: status.Failed},
	)
	m = press(t, m, "c")
	assert.Empty(t, m.out.entries)
	assert.Equal(t, status.Idle, m.status.Current())
}

func TestModel_Filter(t *testing.T) {
	m := testModel(t, newFakeSurface())

	m = press(t, m, "/", "r", "e", "b")
	require.Len(t, m.filtered, 1)
	assert.Equal(t, "reboot", m.filtered[0].ID)

	m = press(t, m, "esc")
	assert.False(t, m.filtering)
	assert.Len(t, m.filtered, 3)
}

func TestModel_TabSwitch(t *testing.T) {
	m := testModel(t, newFakeSurface())

	m = press(t, m, "2")
	require.Len(t, m.filtered, 1)
	assert.Equal(t, "git-status", m.filtered[0].ID)

	m = press(t, m, "tab")
	assert.Equal(t, 0, m.tab, "tab wraps around")
}
