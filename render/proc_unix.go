//go:build unix

package render

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the renderer in its own process group so that
// helpers it spawns (ffmpeg, LaTeX) are signaled along with it.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup sends sig to the whole process group led by cmd.
func signalGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	return syscall.Kill(-cmd.Process.Pid, sig)
}
