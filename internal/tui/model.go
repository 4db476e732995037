package tui

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/simon/managectl/internal/confirm"
	"github.com/simon/managectl/internal/dispatch"
	"github.com/simon/managectl/internal/engine"
	"github.com/simon/managectl/internal/logger"
	"github.com/simon/managectl/internal/normalize"
	"github.com/simon/managectl/internal/registry"
	"github.com/simon/managectl/internal/state"
	"github.com/simon/managectl/internal/status"
	"github.com/simon/managectl/internal/target"
)

// Options wires a Model to the engine and its surroundings.
type Options struct {
	Registry *registry.Registry
	Surface  Surface
	Queue    *dispatch.Queue
	Launcher *engine.Launcher // resolves argv for interactive actions

	// Normalizer follows the panel width unless WrapWidth is set.
	Normalizer *normalize.Normalizer
	WrapWidth  int

	Store   *state.Store // optional run history
	Targets []target.Target
	Target  string // initially selected target name
	Log     *logger.Logger
}

type historyMsg map[string]state.Run

type recordedMsg struct {
	Run state.Run
	Err error
}

type execFinishedMsg struct {
	Action registry.Action
	Err    error
}

// pendingRun is a committed action whose Started event has not arrived yet.
type pendingRun struct {
	action registry.Action
	target string
}

// currentRun is the session the output panel shows.
type currentRun struct {
	session string
	action  registry.Action
	target  string
	command string
}

type Model struct {
	reg      *registry.Registry
	surface  Surface
	queue    *dispatch.Queue
	launcher *engine.Launcher
	norm     *normalize.Normalizer
	store    *state.Store
	log      *logger.Logger
	runner   *runner

	wrapWidth int

	tabs     []registry.Tab
	tab      int
	actions  []registry.Action
	filtered []registry.Action
	cursor   int
	offset   int

	filtering bool
	input     textinput.Model

	targets []target.Target
	tgt     int

	gate confirm.Gate

	pending  []pendingRun
	run      *currentRun
	status   status.Machine
	out      pane
	follow   bool
	viewport viewport.Model
	spinner  spinner.Model

	lastRuns map[string]state.Run
	notice   string

	width, height int
	quitting      bool
	err           error
}

func NewModel(opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "Type to filter actions..."
	ti.Prompt = ""
	ti.CharLimit = 64
	ti.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{Frames: status.SpinnerFrames, FPS: time.Second / 10}
	sp.Style = runningStyle

	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	m := Model{
		reg:       opts.Registry,
		surface:   opts.Surface,
		queue:     opts.Queue,
		launcher:  opts.Launcher,
		norm:      opts.Normalizer,
		store:     opts.Store,
		log:       log,
		wrapWidth: opts.WrapWidth,
		tabs:      opts.Registry.Tabs(),
		input:     ti,
		targets:   opts.Targets,
		follow:    true,
		viewport:  viewport.New(80, 10),
		spinner:   sp,
		lastRuns:  make(map[string]state.Run),
	}
	for i, t := range m.targets {
		if t.Name == opts.Target {
			m.tgt = i
		}
	}
	if opts.Surface != nil {
		m.runner = newRunner(opts.Surface, log)
	}
	m.loadTab()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.queue.Next()}
	if m.store != nil {
		cmds = append(cmds, m.loadHistory)
	}
	return tea.Batch(cmds...)
}

func (m Model) loadHistory() tea.Msg {
	runs, err := m.store.LastByAction()
	if err != nil {
		return err
	}
	return historyMsg(runs)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case dispatch.EventMsg:
		cmd := m.applyEvent(msg.Event)
		return m, tea.Batch(cmd, m.queue.Next())

	case spinner.TickMsg:
		if m.status.Current() != status.Running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case historyMsg:
		for id, r := range msg {
			m.lastRuns[id] = r
		}
		return m, nil

	case recordedMsg:
		if msg.Err != nil {
			m.log.Warn("failed to record run", zap.String("session_id", msg.Run.ID), zap.Error(msg.Err))
		}
		return m, nil

	case execFinishedMsg:
		if msg.Err != nil {
			m.out.add(kindFail, fmt.Sprintf("✗ %s: %v", msg.Action.Title, msg.Err))
		} else {
			m.out.add(kindOK, fmt.Sprintf("✓ %s closed", msg.Action.Title))
		}
		m.refreshViewport()
		return m, nil

	case error:
		m.err = msg
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 6
		m.layout()
		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// applyEvent folds one engine event into the display state. Events of a
// session other than the one on display are dropped.
func (m *Model) applyEvent(ev engine.Event) tea.Cmd {
	switch ev := ev.(type) {
	case engine.Started:
		p := pendingRun{action: registry.Action{Title: "Command"}}
		if len(m.pending) > 0 {
			p, m.pending = m.pending[0], m.pending[1:]
		}
		m.run = &currentRun{
			session: ev.Session,
			action:  p.action,
			target:  p.target,
			command: ev.Descriptor.CommandLine(),
		}
		m.status.Reset()
		m.out.begin(p.action.Title, m.run.command, p.target)
		m.follow = true
		m.refreshViewport()
		return nil

	case engine.LineEmitted:
		if !m.current(ev) {
			return nil
		}
		m.out.output(ev.Line)
		m.refreshViewport()
		return nil

	case engine.StatusChanged:
		if !m.current(ev) {
			return nil
		}
		if err := m.status.Transition(ev.Status); err != nil {
			m.log.Warn("status transition rejected", zap.String("session_id", ev.Session), zap.Error(err))
			return nil
		}
		if ev.Status == status.Running {
			return m.spinner.Tick
		}
		return nil

	case engine.Finished:
		if !m.current(ev) {
			return nil
		}
		m.out.finish(ev.Result)
		m.refreshViewport()
		run := state.NewRun(m.run.action.ID, m.run.target, m.run.command, ev.Result)
		if m.run.action.ID != "" {
			m.lastRuns[run.Action] = run
		}
		return m.record(run)
	}
	return nil
}

func (m Model) current(ev engine.Event) bool {
	return m.run != nil && m.run.session == ev.SessionID()
}

func (m Model) record(run state.Run) tea.Cmd {
	if m.store == nil || run.Action == "" {
		return nil
	}
	store := m.store
	return func() tea.Msg {
		return recordedMsg{Run: run, Err: store.Record(run)}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Ctrl+C always quits
	if key.Matches(msg, keys.CtrlC) {
		return m.quit()
	}

	if m.filtering {
		return m.handleFilterKey(msg)
	}

	// Escape clears a pending confirmation, then the filter
	if key.Matches(msg, keys.Escape) {
		if _, armed := m.gate.Armed(); armed {
			m.gate.Disarm()
			return m, nil
		}
		m.input.SetValue("")
		m.applyFilter()
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit()

	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
		return m, nil

	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
		return m, nil

	case key.Matches(msg, keys.NextTab):
		m.switchTab(m.tab + 1)
		return m, nil

	case key.Matches(msg, keys.PrevTab):
		m.switchTab(m.tab - 1)
		return m, nil

	case key.Matches(msg, keys.Target):
		m.cycleTarget()
		return m, nil

	case key.Matches(msg, keys.Filter):
		m.gate.Disarm()
		m.filtering = true
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, keys.Cancel):
		if m.surface != nil && m.surface.Cancel() {
			m.notice = "Cancelling…"
		}
		return m, nil

	case key.Matches(msg, keys.Clear):
		m.out.reset()
		m.refreshViewport()
		if m.status.Current().Terminal() {
			m.status.Reset()
		}
		return m, nil

	case key.Matches(msg, keys.PageUp):
		m.viewport.ScrollUp(max(1, m.viewport.Height/2))
		m.follow = false
		return m, nil

	case key.Matches(msg, keys.PageDown):
		m.viewport.ScrollDown(max(1, m.viewport.Height/2))
		m.follow = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, keys.Enter):
		return m.selectAction()
	}

	if i, ok := tabIndex(msg.String()); ok {
		m.switchTab(i)
	}
	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.filtering = false
		m.input.Blur()
		m.input.SetValue("")
		m.applyFilter()
		return m, nil
	case key.Matches(msg, keys.Enter):
		m.filtering = false
		m.input.Blur()
		return m, nil
	case msg.Type == tea.KeyUp || msg.Type == tea.KeyDown:
		if msg.Type == tea.KeyUp {
			m.moveCursor(-1)
		} else {
			m.moveCursor(1)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.surface != nil {
		m.surface.Cancel()
	}
	m.quitting = true
	return m, tea.Quit
}

// selectAction runs the action under the cursor through the confirmation gate.
func (m Model) selectAction() (tea.Model, tea.Cmd) {
	a, ok := m.selected()
	if !ok {
		return m, nil
	}
	m.notice = ""
	switch m.gate.Select(a.ID, a.Title, a.Dangerous) {
	case confirm.AwaitConfirm:
		return m, nil
	case confirm.Dismissed:
		m.notice = "Confirmation dismissed"
		return m, nil
	}
	return m.commit(a)
}

func (m Model) commit(a registry.Action) (tea.Model, tea.Cmd) {
	tgt := m.currentTarget()
	_, d, err := m.reg.Resolve(a.ID, tgt)
	if err != nil {
		m.notice = err.Error()
		return m, nil
	}
	targetName := ""
	if a.RequiresTarget {
		targetName = tgt.Name
	}

	if a.Interactive {
		cmd := m.execInteractive(a, d, targetName)
		return m, cmd
	}

	if m.runner == nil || !m.runner.submit(d) {
		m.notice = "Too many pending runs"
		return m, nil
	}
	m.pending = append(m.pending, pendingRun{action: a, target: targetName})
	m.log.Debug("action committed", zap.String("action", a.ID), zap.String("target", targetName))
	return m, nil
}

// execInteractive hands the terminal to the action until it exits.
func (m *Model) execInteractive(a registry.Action, d engine.Descriptor, targetName string) tea.Cmd {
	argv := d.Argv
	if m.launcher != nil {
		argv = m.launcher.Argv(d)
	}
	c := exec.Command(argv[0], argv[1:]...)
	c.Dir = d.Dir

	m.out.begin(a.Title, d.CommandLine(), targetName)
	m.refreshViewport()
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return execFinishedMsg{Action: a, Err: err}
	})
}

func (m *Model) moveCursor(delta int) {
	next := m.cursor + delta
	if next < 0 || next >= len(m.filtered) {
		return
	}
	m.gate.Disarm()
	m.cursor = next
	m.ensureCursorVisible()
}

func (m *Model) switchTab(i int) {
	if len(m.tabs) == 0 {
		return
	}
	i = (i + len(m.tabs)) % len(m.tabs)
	m.gate.Disarm()
	if i == m.tab {
		return
	}
	m.tab = i
	m.loadTab()
}

func (m *Model) loadTab() {
	m.actions = nil
	if len(m.tabs) > 0 {
		m.actions = m.reg.Actions(m.tabs[m.tab].ID)
	}
	m.cursor = 0
	m.offset = 0
	m.applyFilter()
}

func (m *Model) cycleTarget() {
	m.gate.Disarm()
	if len(m.targets) == 0 {
		return
	}
	m.tgt = (m.tgt + 1) % len(m.targets)
	m.notice = "Target: " + m.targets[m.tgt].String()
}

func (m Model) currentTarget() target.Target {
	if len(m.targets) == 0 {
		return target.Target{}
	}
	return m.targets[m.tgt]
}

func (m *Model) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.input.Value()))
	if query == "" {
		m.filtered = m.actions
	} else {
		m.filtered = nil
		for _, a := range m.actions {
			if strings.Contains(strings.ToLower(a.Title), query) ||
				strings.Contains(strings.ToLower(a.ID), query) ||
				strings.Contains(strings.ToLower(a.Description), query) {
				m.filtered = append(m.filtered, a)
			}
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
	m.gate.Disarm()
	m.ensureCursorVisible()
}

func (m Model) selected() (registry.Action, bool) {
	if m.cursor < 0 || m.cursor >= len(m.filtered) {
		return registry.Action{}, false
	}
	return m.filtered[m.cursor], true
}

func (m Model) listRows() int {
	rows := m.height / 3
	if rows < 3 {
		rows = 3
	}
	if rows > 12 {
		rows = 12
	}
	return rows
}

func (m *Model) ensureCursorVisible() {
	maxVis := m.listRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+maxVis {
		m.offset = m.cursor - maxVis + 1
	}
	maxOffset := max(0, len(m.filtered)-maxVis)
	if m.offset > maxOffset {
		m.offset = maxOffset
	}
}

// layout sizes the output panel to the window. Fixed rows: title and
// blank (2), tabs and blank (2), list, description and blank (2), panel
// borders (2), help (1).
func (m *Model) layout() {
	w := max(20, m.width-2)
	h := max(3, m.height-m.listRows()-9)
	m.viewport.Width = w
	m.viewport.Height = h
	if m.norm != nil && m.wrapWidth == 0 {
		m.norm.SetWidth(w - 1)
	}
	m.ensureCursorVisible()
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.out.render(m.viewport.Width - 1))
	if m.follow {
		m.viewport.GotoBottom()
	}
}
