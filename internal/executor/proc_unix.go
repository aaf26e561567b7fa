//go:build !windows

package executor

import (
	"os/exec"
	"syscall"
)

// configureProcess puts the child in its own process group so a timeout
// kills everything it spawned, not only the direct child.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
