//go:build !unix

package engine

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
)

func (l *Launcher) startPTY(*exec.Cmd) (*Process, error) {
	return nil, errNoPTY
}

func pipeAttr() *syscall.SysProcAttr { return nil }

func killGroup(p *os.Process) error {
	err := p.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed)
}
