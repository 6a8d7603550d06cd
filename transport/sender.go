package transport

import "net"

// Sender is the TX-facing half of the engine: an Endpoint constructed
// with RoleTX, restricted to the operations a media source needs (media
// submission, reliable user data, polling, media-control and connection
// callbacks). Embedding *Endpoint keeps every shared method (Stats,
// Connected, Close, SendUserData, Poll) available without duplication.
type Sender struct {
	*Endpoint
}

// NewSender constructs a Sender bound to sock, which the Sender owns and
// closes on Close.
func NewSender(sock *net.UDPConn, cfg Config, cb Callbacks) (*Sender, error) {
	ep, err := NewEndpoint(RoleTX, sock, cfg, cb)
	if err != nil {
		return nil, err
	}
	return &Sender{ep}, nil
}
