package supervisor

import (
	"net"
	"testing"
)

// freePort returns a loopback port with nothing listening on it.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func freeTarget(t *testing.T) Target {
	t.Helper()
	return Target{Host: "127.0.0.1", Port: freePort(t)}
}
