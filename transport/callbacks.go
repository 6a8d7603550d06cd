package transport

import "github.com/vidrail/rtvt/wire"

// Callbacks are the hooks an embedder supplies to observe an Endpoint.
// Every field is optional; a nil callback is simply not invoked. None are
// called with any internal lock held.
type Callbacks struct {
	// OnFrame is invoked on each completed media frame (RX only). payload
	// is only valid for the duration of the call.
	OnFrame func(payload []byte, frameType wire.FrameType)

	// OnData is invoked for USER datagrams and surfaced disconnect
	// notifications (RX and TX).
	OnData func(frameType wire.FrameType, payload []byte)

	// OnConnect is invoked with true on handshake completion (RX only), and
	// with false when the handshake retry budget is exhausted or the
	// heartbeat times out (RX and TX). A received DISCONNECT is reported
	// through OnData, not here.
	OnConnect func(connected bool)

	// OnMediaControl is invoked for START/STOP (TX only). url is empty
	// unless frameType is FrameStart and a URL was present.
	OnMediaControl func(frameType wire.FrameType, url string)
}
