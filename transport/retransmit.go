package transport

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vidrail/rtvt/conn"
	"github.com/vidrail/rtvt/tracker"
	"github.com/vidrail/rtvt/wire"
)

// retransmitSweep is the retransmission scheduler, invoked on every poll
// timeout: the reliable-data queue, the retained I-frame's unacknowledged
// fragments, and handshake-reply retransmission and heartbeat-timeout
// detection.
func (ep *Endpoint) retransmitSweep() {
	now := nowFunc()

	ep.sweepReliableQueue(now)
	ep.sweepIframe(now)
	ep.handshakeAndHeartbeat(now)
}

// sweepReliableQueue drops frames that exhausted their retry budget and
// retransmits any whose retrans_timeout has elapsed.
func (ep *Endpoint) sweepReliableQueue(now time.Time) {
	var toRetransmit []retransmitJob

	// Visit each queued frame once: kept frames are pushed back onto the
	// tail of the same queue.
	for n := ep.reliableQueue.Len(); n > 0; n-- {
		f := ep.reliableQueue.Pop()
		if f == nil {
			break
		}
		switch {
		case f.RetransCount >= ep.cfg.DataMaxRetrans:
			log.WithFields(log.Fields{"frame_id": f.FrameID}).Info("reliable datagram retry budget exhausted, dropping")
			ep.stats.incDataDropped()
			f.Release()

		case now.Sub(f.SendTime) >= ep.cfg.DataRetransTimeout:
			f.RetransCount++
			f.SendTime = now
			toRetransmit = append(toRetransmit, retransmitJob{frameID: f.FrameID, payload: append([]byte(nil), f.Payload()...)})
			ep.reliableQueue.Push(f)
			f.Release()

		default:
			ep.reliableQueue.Push(f)
			f.Release()
		}
	}

	for _, job := range toRetransmit {
		h := wire.Header{
			SeqNum:      ep.nextSeq(),
			FrameID:     job.frameID,
			FrameType:   wire.FrameUser,
			TotalFrags:  1,
			PayloadSize: uint16(len(job.payload)),
			Flags:       wire.FlagRetrans,
		}
		if err := ep.sendPacket(h, job.payload); err != nil {
			log.WithFields(log.Fields{"frame_id": job.frameID, "error": err}).Warn("failed to retransmit user data")
			continue
		}
		ep.stats.incRetransPackets()
	}
}

type retransmitJob struct {
	frameID uint16
	payload []byte
}

// sweepIframe retransmits unacknowledged fragments of the retained I-frame,
// abandoning any that exceed max_retrans (subsequent I-frames supersede
// them; this frame is not removed, only that fragment stops being resent).
func (ep *Endpoint) sweepIframe(now time.Time) {
	f := ep.getIframe()
	if f == nil || f.Tracker == nil {
		return
	}
	trk, ok := f.Tracker.(*tracker.Tracker)
	if !ok {
		return
	}

	payload := f.Payload()
	for i := range trk.Slots() {
		slot := &trk.Slots()[i]
		if slot.Acknowledged {
			continue
		}

		switch {
		case slot.RetransCount >= ep.cfg.IFragMaxRetrans:
			slot.Acknowledged = true
			log.WithFields(log.Fields{
				"frame_id": f.FrameID,
				"frag":     slot.FragIndex,
			}).Info("I-frame fragment abandoned after exhausting retransmit budget")

		case now.Sub(slot.LastSendTime) >= ep.cfg.IFragRetransTimeout:
			offset := wire.FragmentOffset(int(slot.FragIndex), ep.cfg.MTU)
			size := wire.FragmentSize(len(payload), int(slot.FragIndex), ep.cfg.MTU)
			frag := payload[offset : offset+size]

			seq := ep.nextSeq()
			h := wire.Header{
				SeqNum:      seq,
				FrameID:     f.FrameID,
				FrameType:   f.FrameType,
				FragIndex:   slot.FragIndex,
				TotalFrags:  uint16(trk.Len()),
				PayloadSize: uint16(size),
				Flags:       wire.FlagRetrans,
			}
			if int(slot.FragIndex) == trk.Len()-1 {
				h.Flags |= wire.FlagLastFrag
			}

			if err := ep.sendPacket(h, frag); err != nil {
				log.WithFields(log.Fields{"frame_id": f.FrameID, "frag": slot.FragIndex, "error": err}).Warn("failed to retransmit I-frame fragment")
				continue
			}

			slot.RetransCount++
			slot.LastSendTime = now
			ep.stats.incRetransPackets()
		}
	}
}

func (ep *Endpoint) handshakeAndHeartbeat(now time.Time) {
	switch action := ep.sm.PollHandshake(now); action {
	case conn.ActionResendConnect:
		ep.sendControl(wire.FrameConnect, wire.ControlFrameID, nil)
	case conn.ActionResendConnected:
		ep.sendControl(wire.FrameConnected, wire.ControlFrameID, nil)
	case conn.ActionHandshakeFailed:
		log.Info("handshake retry budget exhausted, returning to idle")
		if ep.cb.OnConnect != nil {
			ep.cb.OnConnect(false)
		}
	}

	switch action := ep.sm.PollHeartbeat(now); action {
	case conn.ActionSendHeartbeat:
		// Not ACKed until OnHeartbeatAckReceived; left un-refreshed here so
		// a missed ACK causes this HEARTBEAT to be resent next poll tick.
		ep.sendControl(wire.FrameHeartbeat, wire.ControlFrameID, nil)
	case conn.ActionConnectionDead:
		log.Warn("heartbeat timeout, connection declared dead")
		if ep.cb.OnConnect != nil {
			ep.cb.OnConnect(false)
		}
	}
}
