package engine

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

var errNoPTY = errors.New("pseudo-terminal unavailable")

const (
	defaultShell = "/bin/sh"
	defaultCols  = 120
	defaultRows  = 40
)

// Launcher starts processes for descriptors. Output and error streams of
// the child are merged, through a pseudo-terminal when one can be opened.
type Launcher struct {
	Shell         string   // interpreter for shell mode, default /bin/sh
	ElevatePrefix []string // default ["sudo"]
	DisablePTY    bool
	Cols, Rows    uint16
	Env           []string // appended to the inherited environment
}

// Argv returns the effective argv for d.
func (l *Launcher) Argv(d Descriptor) []string {
	argv := d.Argv
	if d.Shell {
		shell := l.Shell
		if shell == "" {
			shell = defaultShell
		}
		argv = []string{shell, "-c", strings.Join(d.Argv, " ")}
	}
	if d.Elevate {
		prefix := l.ElevatePrefix
		if len(prefix) == 0 {
			prefix = []string{"sudo"}
		}
		argv = append(append([]string(nil), prefix...), argv...)
	}
	return append([]string(nil), argv...)
}

// Launch starts the process for d. Errors wrap ErrExecNotFound,
// ErrSpawn or ErrInvalidDescriptor.
func (l *Launcher) Launch(d Descriptor) (*Process, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	argv := l.Argv(d)

	path, err := lookPath(argv[0], d.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrExecNotFound, argv[0])
	}
	if d.Elevate && !d.Shell {
		if _, err := lookPath(d.Argv[0], d.Dir); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrExecNotFound, d.Argv[0])
		}
	}

	cmd := exec.Command(path, argv[1:]...)
	cmd.Args[0] = argv[0]
	cmd.Dir = d.Dir
	cmd.Env = append(os.Environ(), l.Env...)

	if !l.DisablePTY {
		p, err := l.startPTY(cmd)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, errNoPTY) {
			return nil, err
		}
	}
	return l.startPipe(cmd)
}

// lookPath resolves name like exec.LookPath, except that a relative path
// with a separator is taken relative to dir, where the child will run.
func lookPath(name, dir string) (string, error) {
	if dir == "" || filepath.IsAbs(name) || !strings.ContainsRune(name, filepath.Separator) {
		return exec.LookPath(name)
	}
	abs, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	return exec.LookPath(abs)
}

func (l *Launcher) size() (cols, rows uint16) {
	cols, rows = l.Cols, l.Rows
	if cols == 0 {
		cols = defaultCols
	}
	if rows == 0 {
		rows = defaultRows
	}
	return cols, rows
}

func (l *Launcher) startPipe(cmd *exec.Cmd) (*Process, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	cmd.Stdout = w
	cmd.Stderr = w
	cmd.SysProcAttr = pipeAttr()
	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, spawnError(err)
	}
	_ = w.Close()
	return newProcess(cmd, r, false), nil
}

func spawnError(err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrExecNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrSpawn, err)
}

// Process is a started child process. It is owned by exactly one session.
type Process struct {
	cmd    *exec.Cmd
	out    *os.File
	pty    bool
	exited chan struct{}

	waitOnce  sync.Once
	code      int
	waitErr   error
	closeOnce sync.Once
}

func newProcess(cmd *exec.Cmd, out *os.File, pty bool) *Process {
	return &Process{cmd: cmd, out: out, pty: pty, exited: make(chan struct{})}
}

// Output is the merged stdout/stderr stream.
func (p *Process) Output() *os.File { return p.out }

// PTY reports whether the child runs on a pseudo-terminal.
func (p *Process) PTY() bool { return p.pty }

func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Exited is closed once Wait has reaped the process.
func (p *Process) Exited() <-chan struct{} { return p.exited }

// Wait blocks until the process exits and returns its exit code.
// Signalled processes report 128+signal. It may be called repeatedly.
func (p *Process) Wait() (int, error) {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		p.code, p.waitErr = exitCode(err)
		close(p.exited)
	})
	<-p.exited
	return p.code, p.waitErr
}

// Terminate kills the process and its process group. It is safe to call
// from any goroutine and after the process has exited.
func (p *Process) Terminate() error {
	select {
	case <-p.exited:
		return nil
	default:
	}
	return killGroup(p.cmd.Process)
}

// Close releases the output descriptor.
func (p *Process) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.out.Close()
	})
	return err
}
