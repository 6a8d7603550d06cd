package transport

import (
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/vidrail/rtvt/framepool"
	"github.com/vidrail/rtvt/tracker"
	"github.com/vidrail/rtvt/wire"
)

// sendPacket serializes h, computes its CRC over header+payload, and
// writes both in a single datagram. The reference avoids copying payload
// by using a two-segment scatter write (sendmsg/iovec); net.UDPConn has no
// vectored-write equivalent, so this builds one combined buffer instead —
// see DESIGN.md.
func (ep *Endpoint) sendPacket(h wire.Header, payload []byte) error {
	addr, ok := ep.peerAddr().(*net.UDPAddr)
	if !ok || addr == nil {
		return newError(ErrNotReady, "no peer address")
	}

	buf := make([]byte, wire.WireHeaderSize+len(payload))
	header := wire.Serialize(h)
	copy(buf, header[:wire.HeaderSize])
	copy(buf[wire.WireHeaderSize:], payload)
	wire.ComputeAndSetCRC(buf, payload, len(payload))

	if _, err := ep.sock.WriteToUDP(buf, addr); err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return newError(ErrBusy, "send would block")
		}
		return wrapError(ErrSocketSend, "write failed", err)
	}
	return nil
}

// sendControl emits a zero- or small-payload control packet (CONNECT,
// CONNECTED, DISCONNECT, HEARTBEAT, ACK) with a fresh sequence number.
func (ep *Endpoint) sendControl(frameType wire.FrameType, frameID uint16, payload []byte) error {
	h := wire.Header{
		SeqNum:      ep.nextSeq(),
		FrameID:     frameID,
		FrameType:   frameType,
		TotalFrags:  1,
		PayloadSize: uint16(len(payload)),
	}
	if err := ep.sendPacket(h, payload); err != nil {
		log.WithFields(log.Fields{"frame_type": frameType, "error": err}).Warn("failed to send control packet")
		return err
	}
	return nil
}

// sendFragAck emits an ACK carrying a specific frag_index, the
// per-fragment acknowledgement reassembly requires for I-fragments so TX
// can mark the exact retransmission slot acknowledged.
func (ep *Endpoint) sendFragAck(frameID uint16, fragIndex uint16) error {
	h := wire.Header{
		SeqNum:     ep.nextSeq(),
		FrameID:    frameID,
		FrameType:  wire.FrameAck,
		FragIndex:  fragIndex,
		TotalFrags: 1,
	}
	if err := ep.sendPacket(h, nil); err != nil {
		log.WithFields(log.Fields{"frame_id": frameID, "frag": fragIndex, "error": err}).Warn("failed to send fragment ack")
		return err
	}
	return nil
}

// SendMediaFrame is the media send path: assigns a frame_id, fragments
// by MTU, transmits every fragment, and for I-frames retains the frame
// (and a fresh per-fragment tracker) for selective retransmission,
// superseding whatever I-frame was previously retained.
func (ep *Endpoint) SendMediaFrame(frameType wire.FrameType, payload []byte) error {
	if !frameType.IsMedia() {
		return newError(ErrInvalidParam, "SendMediaFrame requires a media frame type")
	}
	if len(payload) > ep.cfg.MaxFramePayload {
		return newError(ErrOverflow, "payload exceeds max_frame_payload")
	}
	if !ep.Connected() {
		return newError(ErrNotReady, "not connected")
	}

	frameID := ep.nextFrame()
	now := nowFunc()

	totalFrags := wire.FragmentCount(len(payload), ep.cfg.MTU)
	if totalFrags == 0 {
		totalFrags = 1
	}

	var trk *tracker.Tracker
	if frameType == wire.FrameI {
		t, err := ep.trackerPool.Acquire(totalFrags)
		if err != nil {
			if err == tracker.ErrTooLarge {
				return wrapError(ErrTooLarge, "frame fragments exceed the tracker's largest slab class", err)
			}
			return wrapError(ErrNoMemory, "fragment tracker allocation failed", err)
		}
		trk = t
	}

	for i := 0; i < totalFrags; i++ {
		offset := wire.FragmentOffset(i, ep.cfg.MTU)
		size := wire.FragmentSize(len(payload), i, ep.cfg.MTU)
		frag := payload[offset : offset+size]

		seq := ep.nextSeq()
		h := wire.Header{
			SeqNum:      seq,
			FrameID:     frameID,
			FrameType:   frameType,
			FragIndex:   uint16(i),
			TotalFrags:  uint16(totalFrags),
			PayloadSize: uint16(size),
		}
		if i == totalFrags-1 {
			h.Flags |= wire.FlagLastFrag
		}

		if err := ep.sendPacket(h, frag); err != nil {
			log.WithFields(log.Fields{
				"frame_id": frameID,
				"frag":     i,
				"error":    err,
			}).Warn("failed to send fragment")
			continue
		}

		if trk != nil {
			slot := &trk.Slots()[i]
			slot.SeqNum = seq
			slot.LastSendTime = now
			slot.RetransCount = 0
			slot.Acknowledged = false
		}
	}

	ep.stats.incFramesSent()

	if frameType == wire.FrameI {
		f := ep.mediaPool.Acquire()
		f.FrameID = frameID
		f.FrameType = frameType
		f.SetPayload(payload)
		f.SendTime = now
		f.Tracker = trk
		ep.setIframe(f)
	}

	return nil
}

// SendUserData is the reliable-user-data send path: a single-fragment
// USER packet, tracked in the reliable-data queue until ACKed or the
// retry budget is exhausted.
func (ep *Endpoint) SendUserData(payload []byte) error {
	if len(payload) > framepool.ControlPayloadCap {
		return newError(ErrPacketTooLarge, "user data exceeds control frame capacity")
	}
	if !ep.Connected() {
		return newError(ErrNotReady, "not connected")
	}

	f := ep.controlPool.Acquire()
	f.FrameID = ep.nextFrame()
	f.FrameType = wire.FrameUser
	f.SetPayload(payload)
	f.SendTime = nowFunc()

	h := wire.Header{
		SeqNum:      ep.nextSeq(),
		FrameID:     f.FrameID,
		FrameType:   wire.FrameUser,
		FragIndex:   0,
		TotalFrags:  1,
		PayloadSize: uint16(len(payload)),
	}

	err := ep.sendPacket(h, payload)
	if err != nil {
		f.Release()
		return err
	}

	ep.reliableQueue.Push(f)
	f.Release()
	return nil
}
