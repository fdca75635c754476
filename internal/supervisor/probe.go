package supervisor

import (
	"context"
	"net"
	"time"
)

const defaultProbeTimeout = 500 * time.Millisecond

// Prober reports whether something accepts TCP connections at a target.
type Prober interface {
	Probe(ctx context.Context, t Target) bool
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, t Target) bool

func (f ProberFunc) Probe(ctx context.Context, t Target) bool { return f(ctx, t) }

// TCPProber dials the target with a short timeout. A successful connect
// means a listener exists; the connection is closed right away.
type TCPProber struct {
	Timeout time.Duration
}

func (p TCPProber) Probe(ctx context.Context, t Target) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", t.Addr())
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// countingProber records attempts in metrics before delegating.
type countingProber struct {
	next    Prober
	metrics *Metrics
}

func (p countingProber) Probe(ctx context.Context, t Target) bool {
	ok := p.next.Probe(ctx, t)
	p.metrics.observeProbe(ok)
	return ok
}
