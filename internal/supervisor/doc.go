// Package supervisor brings up a local model daemon and runs a downstream CLI
// against it. It is structured into small files by concern:
//
//   - types.go: Target, ProvisionPlan, ChildSpec, RunOutcome and run states.
//   - errors.go: failure types, IsX predicates and ExitCode.
//   - probe.go: TCP probing of the daemon address.
//   - daemon.go: Launcher and ManagedProcess (spawn, ownership, teardown).
//   - ready.go: bounded readiness polling.
//   - provision.go: model pull and warm-up over the daemon's HTTP API.
//   - env.go: the environment handed to the downstream CLI.
//   - child.go: running the downstream CLI and relaying signals.
//   - run.go: Runner, the state machine tying the steps together.
//   - events.go, metrics.go: lifecycle events and Prometheus collectors.
//
// Ownership is the one rule everything else bends around: a daemon this
// package did not start is never signalled, and one it did start is
// terminated exactly once, on every exit path except serve-only hand-off.
package supervisor
