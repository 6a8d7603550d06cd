package transport

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vidrail/rtvt/framepool"
	"github.com/vidrail/rtvt/tracker"
	"github.com/vidrail/rtvt/wire"
)

// reassemble is the reassembly algorithm: look up or create the
// in-progress frame, write the fragment into its buffer, acknowledge it,
// and deliver the frame once every fragment has arrived.
//
// Only I-fragments are individually acknowledged with their true
// frag_index: P/SPS/PPS/A fragments are never retransmitted by TX (no
// tracker is ever allocated for them on the send side), so an ACK for one
// would be a no-op on the far end. This coalescing is safe as long as
// every I-fragment is still acknowledged.
func (ep *Endpoint) reassemble(h wire.Header, payload []byte, now time.Time) {
	if ep.role != RoleRX {
		return
	}

	f := ep.receiveQueue.Find(h.FrameID)
	if f == nil {
		trk, err := ep.trackerPool.Acquire(int(h.TotalFrags))
		if err != nil {
			ep.stats.incNoMemoryErrors()
			return
		}

		nf := ep.poolFor(h.FrameType).Acquire()
		nf.FrameID = h.FrameID
		nf.FrameType = h.FrameType
		nf.State = framepool.StateReceiving
		nf.FirstReceiveTime = now
		nf.Tracker = trk

		ep.receiveQueue.Push(nf)
		nf.Release() // queue now holds the only reference; Find returns it borrowed.
		f = nf
	}

	trk, ok := f.Tracker.(*tracker.Tracker)
	if !ok || int(h.FragIndex) >= trk.Len() {
		ep.stats.incPacketInvalid()
		return
	}

	if trk.Slots()[h.FragIndex].Acknowledged {
		ep.stats.incDupPackets()
		return
	}

	offset := wire.FragmentOffset(int(h.FragIndex), ep.cfg.MTU)
	if offset+len(payload) > f.Capacity() {
		log.WithFields(log.Fields{
			"frame_id": h.FrameID,
			"frag":     h.FragIndex,
			"offset":   offset,
			"len":      len(payload),
			"capacity": f.Capacity(),
		}).Warn("fragment write would exceed frame capacity")
		ep.stats.incPacketInvalid()
		return
	}

	f.WriteAt(offset, payload)
	trk.MarkAcknowledged(int(h.FragIndex))
	f.LastReceiveTime = now
	ep.stats.incRecvFrags()

	if h.FrameType == wire.FrameI {
		ep.sendFragAck(h.FrameID, h.FragIndex)
	}

	if !trk.AllAcknowledged() {
		return
	}

	ep.deliverComplete(f)
}

// deliverComplete removes a fully-reassembled frame from the receive
// queue, caches it as the last I-frame if applicable, invokes the frame
// callback, and releases the local reference.
func (ep *Endpoint) deliverComplete(f *framepool.Frame) {
	f.Retain()
	ep.receiveQueue.Remove(f)

	f.State = framepool.StateComplete
	if f.Tracker != nil {
		f.Tracker.Release()
		f.Tracker = nil
	}

	if f.FrameType == wire.FrameI {
		ep.setIframe(f.Retain())
	}

	if ep.cb.OnFrame != nil {
		ep.cb.OnFrame(f.Payload(), f.FrameType)
	}
	ep.stats.incFramesDelivered()

	f.Release()
}
