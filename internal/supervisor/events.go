package supervisor

// Event is a run lifecycle event: a name plus optional key/values.
type Event struct {
	Name   string
	State  State
	Fields map[string]any
}

// Event names.
const (
	EventState        = "state"
	EventDaemonFound  = "daemon_found"
	EventDaemonSpawn  = "daemon_spawn"
	EventDaemonReady  = "daemon_ready"
	EventDaemonStop   = "daemon_stop"
	EventDaemonDetach = "daemon_detach"
	EventPull         = "pull"
	EventWarmup       = "warmup"
	EventChildStart   = "child_start"
	EventChildSignal  = "child_signal"
	EventChildExit    = "child_exit"
)

// EventPublisher receives run events. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
