package supervisor

import "github.com/rs/zerolog"

// LogPublisher writes every event to a logger at debug level.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Log.Debug().Str("event", e.Name)
	if e.State != "" {
		ev = ev.Str("state", string(e.State))
	}
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("event")
}
