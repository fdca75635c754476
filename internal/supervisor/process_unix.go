//go:build !windows

package supervisor

import (
	"os"
	"os/exec"
	"syscall"
)

// forwardedSignals are watched while the downstream CLI runs.
var forwardedSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT}

// terminalSignal reports whether sig is one the tty driver sends to the
// whole foreground process group, which the downstream CLI belongs to.
func terminalSignal(sig os.Signal) bool {
	switch sig {
	case syscall.SIGINT, syscall.SIGHUP, syscall.SIGQUIT:
		return true
	}
	return false
}

// configureDaemonProcess puts the daemon in its own process group so a
// terminal interrupt reaches it only through the supervisor.
func configureDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateProcess asks the daemon's process group to exit.
func terminateProcess(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGTERM); err != nil {
		return p.Signal(syscall.SIGTERM)
	}
	return nil
}

// killProcess force-kills the daemon's process group.
func killProcess(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil {
		return p.Kill()
	}
	return nil
}

func forwardSignal(p *os.Process, sig os.Signal) error { return p.Signal(sig) }

// signalExitCode returns 128+signo for a process killed by a signal.
func signalExitCode(state *os.ProcessState) (int, bool) {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return 128 + int(ws.Signal()), true
}
