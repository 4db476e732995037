//go:build linux

package engine

import "syscall"

// setParentDeathSignal kills the child if the console dies without cleaning up.
func setParentDeathSignal(attr *syscall.SysProcAttr) {
	attr.Pdeathsig = syscall.SIGKILL
}
