package supervisor

import (
	"fmt"
	"net"
	"strconv"
)

// Target identifies the daemon's network endpoint.
type Target struct {
	Host string
	Port int
}

// Addr returns host:port, bracketing IPv6 literals.
func (t Target) Addr() string { return net.JoinHostPort(t.Host, strconv.Itoa(t.Port)) }

// BaseURL is the daemon's native API root.
func (t Target) BaseURL() string { return "http://" + t.Addr() }

// APIBase is the OpenAI-compatible API root handed to the downstream CLI.
func (t Target) APIBase() string { return t.BaseURL() + "/v1" }

func (t Target) String() string { return t.Addr() }

// Validate rejects targets that cannot be dialed.
func (t Target) Validate() error {
	if t.Host == "" {
		return fmt.Errorf("empty daemon host")
	}
	if t.Port <= 0 || t.Port > 65535 {
		return fmt.Errorf("daemon port out of range: %d", t.Port)
	}
	return nil
}

// ProvisionPlan says which model to prepare and which steps to run.
type ProvisionPlan struct {
	Model      string
	Pull       bool
	Warm       bool
	WarmPrompt string
}

// ChildSpec is everything needed to start the downstream CLI.
type ChildSpec struct {
	Path string
	Args []string
	Env  map[string]string
}

// RunOutcome is the terminal result of a run.
//
// ExitCode is the downstream CLI's exit code on the success path.
// DaemonErr records a teardown problem without changing ExitCode.
// Daemon is set only when the run handed a live daemon to the caller
// (serve-only); the caller then owns its termination.
type RunOutcome struct {
	ExitCode  int
	DaemonErr error
	Daemon    *ManagedProcess
}

// State is a step of the run state machine.
type State string

const (
	StateIdle          State = "idle"
	StateProbing       State = "probing"
	StateLaunching     State = "launching"
	StateAwaitingReady State = "awaiting_ready"
	StateProvisioning  State = "provisioning"
	StateRunning       State = "running"
	StateTerminating   State = "terminating"
	StateDone          State = "done"
)
