package transport

import "net"

// Receiver is the RX-facing half of the engine: an Endpoint constructed
// with RoleRX, which additionally owns the handshake initiation (Connect)
// and the receive/reassembly queue.
type Receiver struct {
	*Endpoint
}

// NewReceiver constructs a Receiver bound to sock, which the Receiver owns
// and closes on Close.
func NewReceiver(sock *net.UDPConn, cfg Config, cb Callbacks) (*Receiver, error) {
	ep, err := NewEndpoint(RoleRX, sock, cfg, cb)
	if err != nil {
		return nil, err
	}
	return &Receiver{ep}, nil
}
