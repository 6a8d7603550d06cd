package conn

import (
	"net"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		ConnectTimeout:    100 * time.Millisecond,
		ConnectMaxRetrans: 3,
		HeartbeatInterval: 60 * time.Second,
		HeartbeatMaxMiss:  3,
	}
}

func TestHandshakeUnderNoLoss(t *testing.T) {
	cfg := testConfig()
	rx := New(RoleRX, cfg)
	tx := New(RoleTX, cfg)

	now := time.Now()
	rx.StartHandshake(now)
	if rx.State() != HandshakeSent {
		t.Fatalf("rx state = %v, want HandshakeSent", rx.State())
	}

	peer := &net.UDPAddr{Port: 9999}
	tx.OnConnectReceived(peer, now)
	if tx.State() != HandshakeReplyPending {
		t.Fatalf("tx state = %v, want HandshakeReplyPending", tx.State())
	}

	rx.OnConnectedReceived(now)
	if rx.State() != Connected {
		t.Fatalf("rx state = %v, want Connected", rx.State())
	}

	tx.OnHandshakeAckReceived(now)
	if tx.State() != Connected {
		t.Fatalf("tx state = %v, want Connected", tx.State())
	}
}

func TestHandshakeRetryExhaustion(t *testing.T) {
	cfg := testConfig()
	tx := New(RoleTX, cfg)

	now := time.Now()
	tx.OnConnectReceived(&net.UDPAddr{}, now)

	for i := 0; i < cfg.ConnectMaxRetrans; i++ {
		now = now.Add(cfg.ConnectTimeout)
		if action := tx.PollHandshake(now); action != ActionResendConnected {
			t.Fatalf("attempt %d: PollHandshake = %v, want ActionResendConnected", i, action)
		}
	}

	now = now.Add(cfg.ConnectTimeout)
	action := tx.PollHandshake(now)
	if action != ActionHandshakeFailed {
		t.Fatalf("final PollHandshake = %v, want ActionHandshakeFailed", action)
	}
	if tx.State() != Idle {
		t.Fatalf("tx state after exhaustion = %v, want Idle", tx.State())
	}
}

func TestHeartbeatTimeoutTransitionsToIdle(t *testing.T) {
	cfg := testConfig()
	cfg.HeartbeatInterval = 10 * time.Millisecond
	cfg.HeartbeatMaxMiss = 3

	tx := New(RoleTX, cfg)
	now := time.Now()
	tx.OnConnectReceived(&net.UDPAddr{}, now)
	tx.OnHandshakeAckReceived(now)

	if action := tx.PollHeartbeat(now.Add(2 * cfg.HeartbeatInterval)); action != ActionNone {
		t.Fatalf("PollHeartbeat before timeout = %v, want ActionNone", action)
	}

	dead := now.Add(time.Duration(cfg.HeartbeatMaxMiss) * cfg.HeartbeatInterval)
	if action := tx.PollHeartbeat(dead); action != ActionConnectionDead {
		t.Fatalf("PollHeartbeat after timeout = %v, want ActionConnectionDead", action)
	}
	if tx.State() != Idle {
		t.Fatalf("state after heartbeat timeout = %v, want Idle", tx.State())
	}
}

func TestRXSendsHeartbeatOnInterval(t *testing.T) {
	cfg := testConfig()
	cfg.HeartbeatInterval = 10 * time.Millisecond

	rx := New(RoleRX, cfg)
	now := time.Now()
	rx.StartHandshake(now)
	rx.OnConnectedReceived(now)

	if action := rx.PollHeartbeat(now.Add(cfg.HeartbeatInterval)); action != ActionSendHeartbeat {
		t.Fatalf("PollHeartbeat = %v, want ActionSendHeartbeat", action)
	}
}

func TestDisconnectReturnsToIdle(t *testing.T) {
	cfg := testConfig()
	tx := New(RoleTX, cfg)
	now := time.Now()
	tx.OnConnectReceived(&net.UDPAddr{}, now)
	tx.OnHandshakeAckReceived(now)

	tx.OnDisconnect()
	if tx.State() != Idle {
		t.Fatalf("state after disconnect = %v, want Idle", tx.State())
	}
	if tx.Peer() != nil {
		t.Fatal("peer not cleared after disconnect")
	}
}

func TestParseURL(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
		wantOK  bool
		wantURL string
	}{
		{"empty", nil, false, ""},
		{"no terminator", []byte("rtsp://x"), false, ""},
		{"valid", append([]byte("rtsp://x"), 0), true, "rtsp://x"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			url, ok := ParseURL(c.payload)
			if ok != c.wantOK || url != c.wantURL {
				t.Errorf("ParseURL(%q) = (%q, %v), want (%q, %v)", c.payload, url, ok, c.wantURL, c.wantOK)
			}
		})
	}
}
