package engine

import (
	"strconv"
	"strings"
	"time"
)

// Descriptor describes one command to execute. A session holds its own
// copy, so later changes by the caller have no effect on a running command.
type Descriptor struct {
	Argv    []string
	Shell   bool // join Argv into one command line for the shell
	Elevate bool // prefix with the privilege escalation command
	Dir     string
	Timeout time.Duration // zero means the engine default
}

// Validate reports ErrInvalidDescriptor for an empty argv.
func (d Descriptor) Validate() error {
	if len(d.Argv) == 0 || d.Argv[0] == "" {
		return ErrInvalidDescriptor
	}
	return nil
}

// Clone returns a deep copy of d.
func (d Descriptor) Clone() Descriptor {
	d.Argv = append([]string(nil), d.Argv...)
	return d
}

// CommandLine renders the descriptor for display, e.g. "$ systemctl status nginx".
func (d Descriptor) CommandLine() string {
	if d.Shell {
		return strings.Join(d.Argv, " ")
	}
	parts := make([]string, len(d.Argv))
	for i, a := range d.Argv {
		if a == "" || strings.ContainsAny(a, " \t\n\"'\\$`") {
			parts[i] = strconv.Quote(a)
		} else {
			parts[i] = a
		}
	}
	return strings.Join(parts, " ")
}
