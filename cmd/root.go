package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/simon/managectl/internal/dispatch"
	"github.com/simon/managectl/internal/engine"
	"github.com/simon/managectl/internal/state"
	"github.com/simon/managectl/internal/tui"
)

func SetVersionInfo(version, commit string) {
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)
}

var rootCmd = &cobra.Command{
	Use:           "managectl",
	Short:         "Run system management actions with live output",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.log.Sync() //nolint:errcheck

		store, err := state.Open()
		if err != nil {
			a.log.Warn("run history unavailable", zap.Error(err))
			store = nil
		} else {
			defer store.Close()
		}

		q := dispatch.New(0)
		surface := engine.NewSurface(a.engine, q)

		m := tui.NewModel(tui.Options{
			Registry:   a.reg,
			Surface:    surface,
			Queue:      q,
			Launcher:   a.engine.Launcher(),
			Normalizer: a.norm,
			WrapWidth:  a.cfg.WrapWidth,
			Store:      store,
			Targets:    a.targets,
			Target:     a.resolveTarget(cmd).Name,
			Log:        a.log,
		})
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

		_, runErr := p.Run()

		// Release producers blocked on the queue, then reap the session.
		q.Close()
		surface.Shutdown()

		if runErr != nil {
			return fmt.Errorf("TUI error: %w", runErr)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/managectl/config.yaml)")
	rootCmd.PersistentFlags().StringP("target", "t", "", "Target machine")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if code, ok := exitCode(err); ok {
			os.Exit(code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
