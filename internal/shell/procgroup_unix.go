//go:build unix

package shell

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// KillGroupOnCancel starts cmd in its own process group and makes context
// cancellation kill the whole group, so grandchildren such as test binaries
// die with the shell instead of holding its output open.
func KillGroupOnCancel(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
