package transport

import (
	"sync"
	"testing"
	"time"

	"github.com/vidrail/rtvt/wire"
)

// TestHandshakeUnderNoLoss checks the baseline handshake: RX connects, TX
// accepts, both observe Connected, on_connect(true) fires on RX, and no
// retransmissions are recorded.
func TestHandshakeUnderNoLoss(t *testing.T) {
	var mu sync.Mutex
	var connected bool
	rxcb := Callbacks{OnConnect: func(ok bool) {
		mu.Lock()
		connected = ok
		mu.Unlock()
	}}

	tx, rx := newPair(t, testConfig(), Callbacks{}, rxcb)
	connectPair(t, tx, rx)

	mu.Lock()
	got := connected
	mu.Unlock()
	if !got {
		t.Fatal("on_connect(true) was not invoked on RX")
	}

	if snap := tx.Stats(); snap.RetransPackets != 0 {
		t.Fatalf("tx retrans_packets = %d, want 0", snap.RetransPackets)
	}
}

// TestSingleFragmentReliableDatagram checks reliable user data end to
// end: RX sends a 4-byte USER datagram; TX's data callback observes it
// exactly once and RX's reliable queue clears once TX's ACK arrives.
func TestSingleFragmentReliableDatagram(t *testing.T) {
	var mu sync.Mutex
	var received [][]byte

	txcb := Callbacks{OnData: func(frameType wire.FrameType, payload []byte) {
		mu.Lock()
		received = append(received, append([]byte(nil), payload...))
		mu.Unlock()
	}}

	tx, rx := newPair(t, testConfig(), txcb, Callbacks{})
	connectPair(t, tx, rx)

	if err := rx.SendUserData([]byte("ping")); err != nil {
		t.Fatalf("SendUserData: %v", err)
	}

	pollUntil(t, tx, rx, 5*time.Millisecond, 50, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	})
	pollUntil(t, tx, rx, 5*time.Millisecond, 50, func() bool {
		return rx.reliableQueue.Len() == 0
	})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("tx observed %d USER datagrams, want 1", len(received))
	}
	if string(received[0]) != "ping" {
		t.Fatalf("payload = %q, want %q", received[0], "ping")
	}
}

// TestDisconnectNotifiesPeer checks connection teardown: the peer that
// did not initiate DISCONNECT still observes the on_data notification and
// returns to Idle.
func TestDisconnectNotifiesPeer(t *testing.T) {
	var mu sync.Mutex
	var notified bool

	rxcb := Callbacks{OnData: func(frameType wire.FrameType, payload []byte) {
		if frameType == wire.FrameDisconnect {
			mu.Lock()
			notified = true
			mu.Unlock()
		}
	}}

	tx, rx := newPair(t, testConfig(), Callbacks{}, rxcb)
	connectPair(t, tx, rx)

	if err := tx.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if tx.Connected() {
		t.Fatal("tx still Connected immediately after Disconnect")
	}

	pollUntil(t, tx, rx, 5*time.Millisecond, 50, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return notified
	})
	if rx.Connected() {
		t.Fatal("rx still Connected after receiving DISCONNECT")
	}
}

// TestMediaControlCarriesURL covers the START/STOP exchange: RX requests
// a source URL, TX's media-control callback observes it.
func TestMediaControlCarriesURL(t *testing.T) {
	var mu sync.Mutex
	var gotType wire.FrameType
	var gotURL string

	txcb := Callbacks{OnMediaControl: func(frameType wire.FrameType, url string) {
		mu.Lock()
		gotType = frameType
		gotURL = url
		mu.Unlock()
	}}

	tx, rx := newPair(t, testConfig(), txcb, Callbacks{})
	connectPair(t, tx, rx)

	if err := rx.SendMediaControl(wire.FrameStart, "rtvt://camera/0"); err != nil {
		t.Fatalf("SendMediaControl: %v", err)
	}

	pollUntil(t, tx, rx, 5*time.Millisecond, 50, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return gotType == wire.FrameStart
	})

	mu.Lock()
	defer mu.Unlock()
	if gotURL != "rtvt://camera/0" {
		t.Fatalf("url = %q, want %q", gotURL, "rtvt://camera/0")
	}
}

// TestHeartbeatTimeoutDeclaresConnectionDead checks that if RX stops
// polling, TX observes no HEARTBEAT for heartbeat_interval *
// heartbeat_max_miss and transitions to Idle; a subsequent send then
// fails with NotReady.
func TestHeartbeatTimeoutDeclaresConnectionDead(t *testing.T) {
	cfg := testConfig()
	tx, rx := newPair(t, cfg, Callbacks{}, Callbacks{})
	connectPair(t, tx, rx)

	deadline := cfg.HeartbeatInterval * time.Duration(cfg.HeartbeatMaxMiss+1)
	start := time.Now()
	for time.Since(start) < deadline && tx.Connected() {
		tx.Poll(5 * time.Millisecond)
	}

	if tx.Connected() {
		t.Fatal("tx still Connected after heartbeat timeout window elapsed")
	}

	if err := tx.SendMediaFrame(wire.FrameI, []byte("x")); err == nil {
		t.Fatal("SendMediaFrame after disconnection succeeded, want NotReady error")
	} else if terr, ok := err.(*Error); !ok || terr.Kind != ErrNotReady {
		t.Fatalf("SendMediaFrame error = %v, want ErrNotReady", err)
	}
}
