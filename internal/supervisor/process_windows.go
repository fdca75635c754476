package supervisor

import (
	"os"
	"os/exec"
	"syscall"
)

var forwardedSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// Console control events go to every process attached to the console.
func terminalSignal(os.Signal) bool { return true }

// configureDaemonProcess hides the daemon's console window and detaches it
// from the console's Ctrl+C group.
func configureDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// Windows has no SIGTERM delivery; termination is always a kill.
func terminateProcess(p *os.Process) error { return p.Kill() }

func killProcess(p *os.Process) error { return p.Kill() }

func forwardSignal(p *os.Process, _ os.Signal) error { return p.Kill() }

func signalExitCode(_ *os.ProcessState) (int, bool) { return 0, false }
