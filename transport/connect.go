package transport

import (
	"net"

	"github.com/vidrail/rtvt/wire"
)

// Connect begins the RX-side three-way handshake: records peer, sends
// CONNECT, and enters HandshakeSent. Retries are driven by subsequent
// Poll calls until CONNECTED arrives or the retry budget exhausts.
// RX-only.
func (ep *Endpoint) Connect(peer *net.UDPAddr) error {
	if ep.role != RoleRX {
		return newError(ErrInvalidParam, "Connect is RX-only")
	}
	ep.sm.SetPeer(peer)
	ep.sm.StartHandshake(nowFunc())
	return ep.sendControl(wire.FrameConnect, wire.ControlFrameID, nil)
}

// Disconnect sends DISCONNECT and immediately returns to Idle locally.
// DISCONNECT is never retransmitted.
func (ep *Endpoint) Disconnect() error {
	if !ep.Connected() {
		return newError(ErrNotReady, "not connected")
	}
	err := ep.sendControl(wire.FrameDisconnect, wire.ControlFrameID, nil)
	ep.sm.OnDisconnect()
	return err
}

// SendMediaControl is RX's half of the START/STOP exchange: it requests
// TX open (optionally naming a source URL) or close its media source.
// url is ignored for STOP and may be empty for START.
func (ep *Endpoint) SendMediaControl(frameType wire.FrameType, url string) error {
	if ep.role != RoleRX {
		return newError(ErrInvalidParam, "SendMediaControl is RX-only")
	}
	if frameType != wire.FrameStart && frameType != wire.FrameStop {
		return newError(ErrInvalidParam, "frameType must be FrameStart or FrameStop")
	}
	if !ep.Connected() {
		return newError(ErrNotReady, "not connected")
	}

	var payload []byte
	if frameType == wire.FrameStart && url != "" {
		if len(url)+1 > ep.cfg.URLMaxLength {
			return newError(ErrOverflow, "url exceeds url_max_length")
		}
		payload = append([]byte(url), 0)
	}
	return ep.sendControl(frameType, wire.ControlFrameID, payload)
}
