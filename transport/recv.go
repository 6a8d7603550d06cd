package transport

import (
	"net"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vidrail/rtvt/wire"
)

// maxDatagramSize bounds a single ReadFromUDP call. It is independent of
// cfg.MTU: the engine never emits a packet larger than MTU, but a buffer
// sized only to MTU would truncate (and silently corrupt the checksum
// region of) any oversized or malicious datagram instead of rejecting it
// cleanly in Validate.
const maxDatagramSize = 65535

// recvOnce is the read-and-dispatch half of the receive path: one
// non-blocking datagram read, header/CRC/invariant checks, and dispatch
// by frame_type. Socket errors and malformed packets are logged or
// counted in statistics, never returned — the embedder is not notified
// of per-packet failures.
func (ep *Endpoint) recvOnce() {
	buf := make([]byte, maxDatagramSize)
	n, addr, err := ep.sock.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return
		}
		log.WithFields(log.Fields{"error": err}).Warn("udp read failed")
		return
	}

	if n < wire.WireHeaderSize {
		ep.stats.incPacketInvalid()
		return
	}

	pkt := buf[:n]
	h, err := wire.Deserialize(pkt)
	if err != nil {
		ep.stats.incPacketInvalid()
		return
	}
	payload := pkt[wire.WireHeaderSize:]

	if !wire.Verify(pkt, payload, len(payload)) {
		ep.stats.incChecksumError()
		return
	}
	if err := wire.Validate(h, ep.cfg.MTU); err != nil {
		ep.stats.incPacketInvalid()
		return
	}

	ep.trackSeqGap(h.SeqNum)
	ep.dispatch(h, payload, addr, nowFunc())
}

// trackSeqGap counts any jump past the next expected sequence number as
// loss, not merely reordering.
func (ep *Endpoint) trackSeqGap(seqNum uint32) {
	last := atomic.LoadUint32(&ep.lastReceivedSeqNum)
	if last > 0 && seqNum > last+1 {
		ep.stats.addLostPackets(uint64(seqNum - last - 1))
	}
	atomic.StoreUint32(&ep.lastReceivedSeqNum, seqNum)
}

// dispatch routes a validated packet by frame_type.
func (ep *Endpoint) dispatch(h wire.Header, payload []byte, addr *net.UDPAddr, now time.Time) {
	switch h.FrameType {
	case wire.FrameAck:
		ep.handleAck(h, now)
	case wire.FrameConnect:
		ep.handleConnect(addr, now)
	case wire.FrameConnected:
		ep.handleConnected(now)
	case wire.FrameDisconnect:
		ep.handleDisconnect()
	case wire.FrameHeartbeat:
		ep.handleHeartbeat(now)
	case wire.FrameStart, wire.FrameStop:
		ep.handleMediaControl(h, payload)
	case wire.FrameUser:
		ep.handleUserData(h, payload)
	default:
		ep.reassemble(h, payload, now)
	}
}
