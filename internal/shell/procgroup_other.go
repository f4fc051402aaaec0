//go:build !unix

package shell

import "os/exec"

// KillGroupOnCancel kills only the direct child on cancellation; process
// groups are not available on this platform.
func KillGroupOnCancel(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		return cmd.Process.Kill()
	}
}
