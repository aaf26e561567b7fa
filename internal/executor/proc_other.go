//go:build windows

package executor

import "os/exec"

// configureProcess is a no-op on Windows; process groups are not available
// and exec.CommandContext kills the direct child only.
func configureProcess(_ *exec.Cmd) {}
