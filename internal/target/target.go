// Package target describes the machines actions run against.
package target

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/simon/managectl/internal/config"
	"github.com/simon/managectl/internal/engine"
)

// Target is a named machine. A target without a host is the local machine;
// its name is still substituted into commands, e.g. a flake output.
type Target struct {
	Name   string
	Host   string
	User   string
	SSHKey string
	Port   int
}

// FromConfig builds the target called name.
func FromConfig(name string, c config.TargetConfig) Target {
	return Target{Name: name, Host: c.Host, User: c.User, SSHKey: c.SSHKey, Port: c.Port}
}

// All returns the configured targets, default first.
func All(cfg *config.Config) []Target {
	names := cfg.TargetNames()
	targets := make([]Target, len(names))
	for i, name := range names {
		targets[i] = FromConfig(name, cfg.Targets[name])
	}
	return targets
}

func (t Target) IsZero() bool   { return t.Name == "" }
func (t Target) IsRemote() bool { return t.Host != "" }

func (t Target) String() string {
	if t.IsRemote() {
		return fmt.Sprintf("%s (%s)", t.Name, t.destination())
	}
	return t.Name
}

func (t Target) destination() string {
	if t.User == "" {
		return t.Host
	}
	return fmt.Sprintf("%s@%s", t.User, t.Host)
}

func (t Target) sshArgs() []string {
	args := []string{
		"-o", "ControlMaster=auto",
		"-o", "ControlPath=/tmp/managectl-ssh-%r@%h:%p",
		"-o", "ControlPersist=60",
		"-o", "StrictHostKeyChecking=accept-new",
	}
	if t.SSHKey != "" {
		args = append(args, "-i", t.SSHKey)
	}
	if t.Port != 0 {
		args = append(args, "-p", strconv.Itoa(t.Port))
	}
	return append(args, t.destination())
}

// Wrap returns the descriptor that runs d on t. Local targets return d
// unchanged. For remote targets the command line is quoted for the remote
// shell, and elevation and the working directory apply on the remote side.
func (t Target) Wrap(d engine.Descriptor, elevate []string) engine.Descriptor {
	if !t.IsRemote() {
		return d
	}

	var remote string
	if d.Shell {
		remote = strings.Join(d.Argv, " ")
		if d.Elevate {
			remote = "sh -c " + shellQuote(remote)
		}
	} else {
		remote = quoteArgs(d.Argv)
	}
	if d.Elevate {
		if len(elevate) == 0 {
			elevate = []string{"sudo"}
		}
		remote = quoteArgs(elevate) + " " + remote
	}
	if d.Dir != "" {
		remote = "cd " + shellQuote(d.Dir) + " && " + remote
	}

	argv := append([]string{"ssh", "-t"}, t.sshArgs()...)
	return engine.Descriptor{
		Argv:    append(argv, remote),
		Timeout: d.Timeout,
	}
}

func quoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

// shellQuote wraps s in single quotes unless it only holds safe characters.
func shellQuote(s string) string {
	if s != "" && strings.Trim(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./=:@,+%") == "" {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
