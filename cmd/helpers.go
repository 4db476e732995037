package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simon/managectl/internal/config"
	"github.com/simon/managectl/internal/engine"
	"github.com/simon/managectl/internal/logger"
	"github.com/simon/managectl/internal/normalize"
	"github.com/simon/managectl/internal/registry"
	"github.com/simon/managectl/internal/target"
)

// exitCodeError carries a command outcome to Execute.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// app is everything a command needs, built once from the config.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	reg     *registry.Registry
	norm    *normalize.Normalizer
	engine  *engine.Engine
	targets []target.Target
}

// loadApp reads the config named by --config. When logToStderr is set the
// log goes to stderr instead of the configured file.
func loadApp(cmd *cobra.Command, logToStderr bool) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := cfg.Log
	if logToStderr {
		logCfg = logger.LoggingConfig{Level: "warn", Format: "console", OutputPath: "stderr"}
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		logCfg.Level = level
	}
	log, err := logger.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}

	reg, err := registry.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid action catalog: %w", err)
	}

	norm := normalize.New(normalize.Options{Width: cfg.WrapWidth})
	eng := engine.New(engine.Config{
		Launcher: engine.Launcher{
			Shell:         cfg.Shell,
			ElevatePrefix: cfg.Elevate,
			DisablePTY:    cfg.PTY.Disabled,
			Cols:          cfg.PTY.Cols,
			Rows:          cfg.PTY.Rows,
		},
		Timeout:      cfg.Timeout.Std(),
		PollInterval: cfg.PollInterval.Std(),
	}, norm, log)

	return &app{
		cfg:     cfg,
		log:     log,
		reg:     reg,
		norm:    norm,
		engine:  eng,
		targets: targetsFor(cfg),
	}, nil
}

// targetsFor returns the configured targets, or the local machine by
// hostname when none are configured.
func targetsFor(cfg *config.Config) []target.Target {
	if targets := target.All(cfg); len(targets) > 0 {
		return targets
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return nil
	}
	return []target.Target{{Name: host}}
}

// resolveTarget picks the target named by --target, or the first one.
// An unknown name is used as a local target.
func (a *app) resolveTarget(cmd *cobra.Command) target.Target {
	name, _ := cmd.Flags().GetString("target")
	if name == "" {
		if len(a.targets) == 0 {
			return target.Target{}
		}
		return a.targets[0]
	}
	for _, t := range a.targets {
		if t.Name == name {
			return t
		}
	}
	return target.Target{Name: name}
}

func exitCode(err error) (int, bool) {
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code, true
	}
	return 0, false
}
