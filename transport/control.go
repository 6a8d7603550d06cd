package transport

import (
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vidrail/rtvt/conn"
	"github.com/vidrail/rtvt/tracker"
	"github.com/vidrail/rtvt/wire"
)

// handleAck dispatches an incoming ACK: a frame_id 0 ACK completes a
// pending handshake or refreshes heartbeat liveness; any other ACK either
// closes out a reliable-data send or marks one I-frame fragment
// acknowledged.
func (ep *Endpoint) handleAck(h wire.Header, now time.Time) {
	if h.FrameID == wire.ControlFrameID {
		switch ep.sm.State() {
		case conn.HandshakeReplyPending:
			ep.sm.OnHandshakeAckReceived(now)
		case conn.Connected:
			ep.sm.OnHeartbeatAckReceived(now)
		}
		return
	}

	if f := ep.reliableQueue.Find(h.FrameID); f != nil {
		ep.reliableQueue.Remove(f)
		return
	}

	if f := ep.getIframe(); f != nil && f.FrameID == h.FrameID {
		if trk, ok := f.Tracker.(*tracker.Tracker); ok && int(h.FragIndex) < trk.Len() {
			trk.MarkAcknowledged(int(h.FragIndex))
		}
	}
}

// handleConnect is TX's reaction to RX's CONNECT: record the peer and
// reply CONNECTED, entering HandshakeReplyPending.
func (ep *Endpoint) handleConnect(addr *net.UDPAddr, now time.Time) {
	if ep.role != RoleTX {
		return
	}
	ep.sm.OnConnectReceived(addr, now)
	ep.sendControl(wire.FrameConnected, wire.ControlFrameID, nil)
}

// handleConnected is RX's reaction to TX's CONNECTED: reply ACK and enter
// Connected, completing the three-way handshake.
func (ep *Endpoint) handleConnected(now time.Time) {
	if ep.role != RoleRX || ep.sm.State() != conn.HandshakeSent {
		return
	}
	ep.sm.OnConnectedReceived(now)
	ep.sendControl(wire.FrameAck, wire.ControlFrameID, nil)
	if ep.cb.OnConnect != nil {
		ep.cb.OnConnect(true)
	}
}

// handleDisconnect tears a connection down: reply ACK, return to Idle,
// surface the notification. No retransmission of DISCONNECT is ever
// attempted by either side.
func (ep *Endpoint) handleDisconnect() {
	ep.sendControl(wire.FrameAck, wire.ControlFrameID, nil)
	ep.sm.OnDisconnect()
	if ep.cb.OnData != nil {
		ep.cb.OnData(wire.FrameDisconnect, nil)
	}
}

// handleHeartbeat is TX's reaction to RX's HEARTBEAT: refresh liveness and
// reply ACK.
func (ep *Endpoint) handleHeartbeat(now time.Time) {
	ep.sm.OnHeartbeatReceived(now)
	ep.sendControl(wire.FrameAck, wire.ControlFrameID, nil)
}

// handleMediaControl is TX's reaction to START/STOP: invoke the
// media-control callback with the optional URL (URL parsing applies to
// START only).
func (ep *Endpoint) handleMediaControl(h wire.Header, payload []byte) {
	if ep.role != RoleTX {
		return
	}
	var url string
	if h.FrameType == wire.FrameStart {
		u, ok := conn.ParseURL(payload)
		if !ok {
			log.Warn("START received with no URL or malformed terminator")
		} else {
			url = u
		}
	}
	if ep.cb.OnMediaControl != nil {
		ep.cb.OnMediaControl(h.FrameType, url)
	}
}

// handleUserData acks the datagram by frame_id and invokes the data
// callback with a copy of its payload. The payload slice points into
// recvOnce's read buffer, which is why the callback gets a copy.
func (ep *Endpoint) handleUserData(h wire.Header, payload []byte) {
	ep.sendControl(wire.FrameAck, h.FrameID, nil)
	if ep.cb.OnData != nil {
		ep.cb.OnData(wire.FrameUser, append([]byte(nil), payload...))
	}
}
