package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

// testConfig returns a Config with timeouts shrunk far enough that tests
// converge quickly, but the MTU/capacity fields left at their documented
// defaults.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.IFragRetransTimeout = 5 * time.Millisecond
	cfg.IFragMaxRetrans = 3
	cfg.DataRetransTimeout = 10 * time.Millisecond
	cfg.DataMaxRetrans = 3
	cfg.ConnectTimeout = 20 * time.Millisecond
	cfg.ConnectMaxRetrans = 3
	cfg.HeartbeatInterval = 20 * time.Millisecond
	cfg.HeartbeatMaxMiss = 3
	cfg.ReassemblyTimeout = 30 * time.Millisecond
	return cfg
}

func loopbackSocket(t *testing.T) *net.UDPConn {
	t.Helper()
	sock, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	return sock
}

// newPair builds a Sender/Receiver bound to loopback sockets, closing both
// via t.Cleanup.
func newPair(t *testing.T, cfg Config, txcb, rxcb Callbacks) (*Sender, *Receiver) {
	t.Helper()

	tx, err := NewSender(loopbackSocket(t), cfg, txcb)
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	rx, err := NewReceiver(loopbackSocket(t), cfg, rxcb)
	if err != nil {
		t.Fatalf("NewReceiver: %v", err)
	}

	t.Cleanup(func() {
		tx.Close(context.Background())
		rx.Close(context.Background())
	})

	return tx, rx
}

// pollUntil alternates Poll on both endpoints until cond is satisfied or
// the attempt budget is exhausted.
func pollUntil(t *testing.T, tx *Sender, rx *Receiver, step time.Duration, attempts int, cond func() bool) {
	t.Helper()
	for i := 0; i < attempts; i++ {
		if cond() {
			return
		}
		rx.Poll(step)
		tx.Poll(step)
	}
	if !cond() {
		t.Fatalf("condition not satisfied after %d poll rounds", attempts)
	}
}

func connectPair(t *testing.T, tx *Sender, rx *Receiver) {
	t.Helper()
	txAddr := tx.sock.LocalAddr().(*net.UDPAddr)
	if err := rx.Connect(txAddr); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	pollUntil(t, tx, rx, 5*time.Millisecond, 50, func() bool {
		return tx.Connected() && rx.Connected()
	})
}
