package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/simon/managectl/internal/confirm"
	"github.com/simon/managectl/internal/dispatch"
	"github.com/simon/managectl/internal/engine"
	"github.com/simon/managectl/internal/normalize"
	"github.com/simon/managectl/internal/registry"
	"github.com/simon/managectl/internal/state"
)

var (
	runTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#D6249F", Dark: "#FF79C6"})
	runCmdStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#8BE9FD"})
	runDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#777777", Dark: "#6272A4"})
	runOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#116620", Dark: "#50FA7B"})
	runWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#7D5A00", Dark: "#F1FA8C"})
	runErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B31D28", Dark: "#FF5555"})
)

var runCmd = &cobra.Command{
	Use:   "run <action>",
	Short: "Run one action and stream its output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.log.Sync() //nolint:errcheck

		action, err := a.reg.Lookup(args[0])
		if err != nil {
			return err
		}
		tgt := a.resolveTarget(cmd)

		yes, _ := cmd.Flags().GetBool("yes")
		if !confirmRun(action, yes, os.Stdin, os.Stdout) {
			fmt.Println("Cancelled.")
			return nil
		}

		if action.Interactive {
			_, d, err := a.reg.Resolve(action.ID, tgt)
			if err != nil {
				return err
			}
			return runInteractive(a.engine.Launcher().Argv(d), d.Dir)
		}

		width, _ := cmd.Flags().GetInt("width")
		if width == 0 {
			width = a.cfg.WrapWidth
		}
		if width == 0 && term.IsTerminal(int(os.Stdout.Fd())) {
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				width = w
			}
		}
		a.norm.SetWidth(width)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		q := dispatch.New(0)
		defer q.Close()

		var starter registry.Starter = engine.NewSurface(a.engine, q)
		if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
			starter = timeoutStarter{Starter: starter, timeout: timeout}
		}

		targetName := ""
		if action.RequiresTarget {
			targetName = tgt.Name
		}

		// A launch failure still delivers its events, so only a failure
		// before the engine (unknown action, missing target) returns early.
		if _, err := a.reg.Dispatch(ctx, action.ID, registry.Binding{Target: tgt, Starter: starter}); err != nil &&
			!errors.Is(err, engine.ErrExecNotFound) && !errors.Is(err, engine.ErrSpawn) {
			return err
		}

		res := printEvents(q, os.Stdout, action, targetName)

		if store, err := state.Open(); err == nil {
			if err := store.Record(state.NewRun(action.ID, targetName, res.command, res.Result)); err != nil {
				a.log.Warn("failed to record run", zap.Error(err))
			}
			store.Close()
		} else {
			a.log.Warn("run history unavailable", zap.Error(err))
		}

		if code := res.Code(); code != 0 {
			return &exitCodeError{code: code}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolP("yes", "y", false, "Skip confirmation for dangerous actions")
	runCmd.Flags().Duration("timeout", 0, "Kill the command after this long")
	runCmd.Flags().Int("width", 0, "Wrap output at this width (default terminal width)")
	rootCmd.AddCommand(runCmd)
}

// confirmRun drives the confirmation gate. The first selection arms a
// dangerous action; --yes or a yes answer is the second selection.
func confirmRun(action registry.Action, yes bool, in io.Reader, out io.Writer) bool {
	var g confirm.Gate
	if g.Select(action.ID, action.Title, action.Dangerous) == confirm.Proceed {
		return true
	}
	if !yes {
		fmt.Fprintf(out, "%s is dangerous. Run it? [y/N] ", action.Title)
		answer, _ := bufio.NewReader(in).ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y") {
			g.Disarm()
			return false
		}
	}
	return g.Select(action.ID, action.Title, action.Dangerous) == confirm.Proceed
}

// timeoutStarter overrides the timeout of every descriptor it starts.
type timeoutStarter struct {
	registry.Starter
	timeout time.Duration
}

func (s timeoutStarter) Run(ctx context.Context, d engine.Descriptor) (*engine.Session, error) {
	d.Timeout = s.timeout
	return s.Starter.Run(ctx, d)
}

type printedRun struct {
	engine.Result
	command string
}

// printEvents consumes the queue until the session finishes.
func printEvents(q *dispatch.Queue, w io.Writer, action registry.Action, targetName string) printedRun {
	var run printedRun
	lines := 0
	for ev := range q.Events() {
		switch ev := ev.(type) {
		case engine.Started:
			run.command = ev.Descriptor.CommandLine()
			title := action.Title
			if targetName != "" {
				title += " on " + targetName
			}
			fmt.Fprintln(w, runTitleStyle.Render("▶ "+title))
			fmt.Fprintln(w, runCmdStyle.Render("$ "+run.command))
		case engine.LineEmitted:
			lines++
			fmt.Fprintln(w, styleLine(ev.Line))
		case engine.Finished:
			run.Result = ev.Result
			switch {
			case ev.Result.Outcome == engine.Success:
				if lines == 0 {
					fmt.Fprintln(w, runDimStyle.Render("Command completed (no output)"))
				}
				fmt.Fprintln(w, runOKStyle.Bold(true).Render("✓ "+ev.Result.Summary()))
			default:
				fmt.Fprintln(w, runErrStyle.Bold(true).Render("✗ "+ev.Result.Summary()))
			}
			return run
		}
	}
	return run
}

func styleLine(l normalize.Line) string {
	switch l.Class {
	case normalize.Error:
		return runErrStyle.Render(l.Text)
	case normalize.Warning:
		return runWarnStyle.Render(l.Text)
	case normalize.Success:
		return runOKStyle.Render(l.Text)
	case normalize.Separator:
		return runDimStyle.Render(l.Text)
	default:
		return l.Text
	}
}

// runInteractive runs argv attached to this terminal.
func runInteractive(argv []string, dir string) error {
	c := exec.Command(argv[0], argv[1:]...)
	c.Dir = dir
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &exitCodeError{code: exitErr.ExitCode()}
		}
		if errors.Is(err, exec.ErrNotFound) {
			fmt.Fprintln(os.Stderr, err)
			return &exitCodeError{code: engine.CodeNotFound}
		}
		return err
	}
	return nil
}
