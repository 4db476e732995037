package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/simon/managectl/internal/logger"
)

//go:embed defaults.yaml
var defaultCatalog []byte

// ErrNoActions is returned when the config defines no runnable action.
var ErrNoActions = errors.New("config defines no actions")

const (
	defaultShell        = "/bin/sh"
	defaultPollInterval = 50 * time.Millisecond
)

// Duration is a time.Duration read from a string such as "90s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type TargetConfig struct {
	Host   string `yaml:"host"`
	User   string `yaml:"user"`
	SSHKey string `yaml:"ssh_key"`
	Port   int    `yaml:"port"`
}

type ActionConfig struct {
	ID             string   `yaml:"id"`
	Title          string   `yaml:"title"`
	Description    string   `yaml:"description"`
	Argv           []string `yaml:"argv"`
	Command        string   `yaml:"command"`
	Shell          bool     `yaml:"shell"`
	Elevate        bool     `yaml:"elevate"`
	Dangerous      bool     `yaml:"dangerous"`
	RequiresTarget bool     `yaml:"requires_target"`
	Interactive    bool     `yaml:"interactive"`
	Dir            string   `yaml:"dir"`
	Timeout        Duration `yaml:"timeout"`
}

// Words returns the argv of the action. A command string runs in shell mode.
func (a ActionConfig) Words() (argv []string, shell bool) {
	if a.Command != "" {
		return []string{a.Command}, true
	}
	return append([]string(nil), a.Argv...), a.Shell
}

type TabConfig struct {
	ID      string         `yaml:"id"`
	Title   string         `yaml:"title"`
	Actions []ActionConfig `yaml:"actions"`
}

type PTYConfig struct {
	Disabled bool   `yaml:"disabled"`
	Cols     uint16 `yaml:"cols"`
	Rows     uint16 `yaml:"rows"`
}

type Config struct {
	Shell         string                  `yaml:"shell"`
	Elevate       []string                `yaml:"elevate"`
	Timeout       Duration                `yaml:"timeout"`
	WrapWidth     int                     `yaml:"wrap_width"`
	PollInterval  Duration                `yaml:"poll_interval"`
	PTY           PTYConfig               `yaml:"pty"`
	Log           logger.LoggingConfig    `yaml:"log"`
	Targets       map[string]TargetConfig `yaml:"targets"`
	DefaultTarget string                  `yaml:"default_target"`
	Tabs          []TabConfig             `yaml:"tabs"`
}

// DefaultPath returns ~/.config/managectl/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "managectl", "config.yaml"), nil
}

// StateDir returns $XDG_STATE_HOME/managectl, falling back to ~/.local/state.
func StateDir() (string, error) {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "managectl"), nil
}

// Load reads the config at path, or the default path when empty.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Parse(nil)
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Parse(nil)
		}
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data and fills in defaults. Empty data gives the
// built-in configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Tabs) == 0 {
		var catalog struct {
			Tabs []TabConfig `yaml:"tabs"`
		}
		if err := yaml.Unmarshal(defaultCatalog, &catalog); err != nil {
			return nil, fmt.Errorf("default catalog: %w", err)
		}
		cfg.Tabs = catalog.Tabs
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Shell == "" {
		c.Shell = defaultShell
	}
	if len(c.Elevate) == 0 {
		c.Elevate = []string{"sudo"}
	}
	if c.PollInterval <= 0 {
		c.PollInterval = Duration(defaultPollInterval)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.OutputPath == "" {
		if dir, err := StateDir(); err == nil {
			c.Log.OutputPath = filepath.Join(dir, "managectl.log")
		}
	}

	// Expand ~ in ssh_key
	home, _ := os.UserHomeDir()
	for name, t := range c.Targets {
		if len(t.SSHKey) > 0 && t.SSHKey[0] == '~' && home != "" {
			t.SSHKey = filepath.Join(home, t.SSHKey[1:])
		}
		c.Targets[name] = t
	}

	title := cases.Title(language.English)
	for i := range c.Tabs {
		if c.Tabs[i].Title == "" {
			c.Tabs[i].Title = title.String(c.Tabs[i].ID)
		}
		for j := range c.Tabs[i].Actions {
			a := &c.Tabs[i].Actions[j]
			if a.Title == "" {
				a.Title = title.String(a.ID)
			}
		}
	}
}

// Validate checks that every action can build a command.
func (c *Config) Validate() error {
	n := 0
	for _, tab := range c.Tabs {
		if tab.ID == "" {
			return errors.New("tab without id")
		}
		for _, a := range tab.Actions {
			if len(a.Argv) == 0 && a.Command == "" {
				return fmt.Errorf("action %q in tab %q: neither argv nor command set", a.ID, tab.ID)
			}
			n++
		}
	}
	if n == 0 {
		return ErrNoActions
	}
	if c.DefaultTarget != "" {
		if _, ok := c.Targets[c.DefaultTarget]; !ok {
			return fmt.Errorf("default_target %q is not a configured target", c.DefaultTarget)
		}
	}
	return nil
}

// TargetNames returns the configured target names with the default first
// and the rest sorted.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		if name != c.DefaultTarget {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if c.DefaultTarget != "" {
		names = append([]string{c.DefaultTarget}, names...)
	}
	return names
}
