package transport

import "time"

// Poll is the endpoint's event loop step: it waits on a readable-socket
// event for up to timeout, then always runs one receive attempt followed
// by one retransmission-sweep pass before returning. It is meant to be
// called in a tight loop from (at least) one dedicated goroutine per
// endpoint; SendMediaFrame and SendUserData are safe to call concurrently
// with Poll from other goroutines.
func (ep *Endpoint) Poll(timeout time.Duration) error {
	if !ep.running.Load() {
		return newError(ErrDisconnected, "endpoint closed")
	}

	// The socket deadline is wall-clock time, independent of nowFunc.
	if err := ep.sock.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return wrapError(ErrSocketRecv, "failed to set read deadline", err)
	}

	ep.recvOnce()
	ep.retransmitSweep()

	if ep.receiveQueue != nil {
		if swept := ep.receiveQueue.Sweep(nowFunc()); swept > 0 {
			ep.stats.addIncompleteFrames(uint64(swept))
		}
	}

	return nil
}
