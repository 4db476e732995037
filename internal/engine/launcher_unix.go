//go:build unix

package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

// startPTY runs cmd as a session leader with a fresh pseudo-terminal as
// its controlling terminal and as stdin, stdout and stderr.
func (l *Launcher) startPTY(cmd *exec.Cmd) (*Process, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNoPTY, err)
	}
	cols, rows := l.size()
	_ = pty.Setsize(ptmx, &pty.Winsize{Rows: rows, Cols: cols})

	// pty.Open leaves the master in blocking mode, where read deadlines
	// never fire. Nothing may call Fd on it after this point.
	if f, err := pollable(ptmx); err == nil {
		ptmx = f
	}

	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}
	setParentDeathSignal(cmd.SysProcAttr)

	if err := cmd.Start(); err != nil {
		_ = ptmx.Close()
		_ = tty.Close()
		return nil, spawnError(err)
	}
	// The child holds its own copy; ours would keep the stream open after exit.
	_ = tty.Close()
	return newProcess(cmd, ptmx, true), nil
}

// pollable returns a non-blocking duplicate of f registered with the
// runtime poller and closes f. On error f is left untouched.
func pollable(f *os.File) (*os.File, error) {
	fd, err := syscall.Dup(int(f.Fd()))
	if err != nil {
		return nil, err
	}
	syscall.CloseOnExec(fd)
	if err := syscall.SetNonblock(fd, true); err != nil {
		_ = syscall.Close(fd)
		return nil, err
	}
	name := f.Name()
	_ = f.Close()
	return os.NewFile(uintptr(fd), name), nil
}

func pipeAttr() *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{Setpgid: true}
	setParentDeathSignal(attr)
	return attr
}

// killGroup sends SIGKILL to the process group led by p. Both launch
// modes make the child a group leader, so this reaches its descendants too.
func killGroup(p *os.Process) error {
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// exitCode extracts the exit code from a Wait error.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// isEndOfStream reports whether err means the child side of the stream
// has gone away. A pty master reports EIO once every slave fd is closed.
func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)
}
