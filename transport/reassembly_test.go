package transport

import (
	"context"
	"testing"
	"time"

	"github.com/vidrail/rtvt/wire"
)

func newReceiverOnly(t *testing.T, cfg Config, cb Callbacks) *Receiver {
	t.Helper()
	rx, err := NewReceiver(loopbackSocket(t), cfg, cb)
	if err != nil {
		t.Fatalf("NewReceiver: %v", err)
	}
	t.Cleanup(func() { rx.Close(context.Background()) })
	return rx
}

func header(frameID uint16, frameType wire.FrameType, frag, total int, size int, last bool) wire.Header {
	h := wire.Header{
		FrameID:     frameID,
		FrameType:   frameType,
		FragIndex:   uint16(frag),
		TotalFrags:  uint16(total),
		PayloadSize: uint16(size),
	}
	if last {
		h.Flags |= wire.FlagLastFrag
	}
	return h
}

// TestReassembleOutOfOrderDeliversOriginalPayload checks the reassembly
// invariant: any arrival order reconstructs the original payload, and a
// completed I-frame is cached as last_iframe.
func TestReassembleOutOfOrderDeliversOriginalPayload(t *testing.T) {
	const mtu = 1400
	payload := make([]byte, 4200) // 4 fragments: 1386/1386/1386/42
	for i := range payload {
		payload[i] = byte(i)
	}
	total := wire.FragmentCount(len(payload), mtu)

	var delivered []byte
	var deliveredType wire.FrameType
	var calls int
	rx := newReceiverOnly(t, testConfig(), Callbacks{OnFrame: func(p []byte, ft wire.FrameType) {
		delivered = append([]byte(nil), p...)
		deliveredType = ft
		calls++
	}})

	order := []int{2, 0, 3, 1}
	now := time.Now()
	for _, i := range order {
		off := wire.FragmentOffset(i, mtu)
		size := wire.FragmentSize(len(payload), i, mtu)
		h := header(7, wire.FrameI, i, total, size, i == total-1)
		rx.reassemble(h, payload[off:off+size], now)
	}

	if calls != 1 {
		t.Fatalf("OnFrame invoked %d times, want 1", calls)
	}
	if deliveredType != wire.FrameI {
		t.Fatalf("delivered frame_type = %v, want I", deliveredType)
	}
	if len(delivered) != len(payload) {
		t.Fatalf("delivered len = %d, want %d", len(delivered), len(payload))
	}
	for i := range payload {
		if delivered[i] != payload[i] {
			t.Fatalf("payload mismatch at byte %d", i)
		}
	}

	if got := rx.getIframe(); got == nil || got.FrameID != 7 {
		t.Fatal("completed I-frame was not cached as last_iframe")
	}
}

// TestReassembleDuplicateFragmentIsCountedAndIgnored checks that a
// fragment delivered more than once only alters the frame on its first
// delivery. Uses a 2-fragment frame so the duplicate arrives while the
// frame is still in progress (a single-fragment frame completes, and is
// removed from the queue, on its first and only fragment).
func TestReassembleDuplicateFragmentIsCountedAndIgnored(t *testing.T) {
	const mtu = 1400
	fragA := []byte("first fragment payload")
	fragB := []byte("second fragment payload")
	now := time.Now()

	var calls int
	rx := newReceiverOnly(t, testConfig(), Callbacks{OnFrame: func(p []byte, ft wire.FrameType) { calls++ }})

	h0 := header(1, wire.FrameP, 0, 2, len(fragA), false)
	rx.reassemble(h0, fragA, now)
	rx.reassemble(h0, fragA, now) // duplicate of fragment 0, frame still in progress

	if calls != 0 {
		t.Fatalf("OnFrame invoked before all fragments arrived")
	}
	if got := rx.Stats().DupPackets; got != 1 {
		t.Fatalf("dup_packets = %d, want 1", got)
	}

	h1 := header(1, wire.FrameP, 1, 2, len(fragB), true)
	rx.reassemble(h1, fragB, now)

	if calls != 1 {
		t.Fatalf("OnFrame invoked %d times, want 1", calls)
	}
}

// TestReassemblePFrameLossTimesOut checks that a P-frame missing a
// fragment is eventually reaped by the timeout sweep and never
// delivered.
func TestReassemblePFrameLossTimesOut(t *testing.T) {
	const mtu = 1400
	cfg := testConfig()

	var calls int
	rx := newReceiverOnly(t, cfg, Callbacks{OnFrame: func(p []byte, ft wire.FrameType) { calls++ }})

	now := time.Now()
	size := wire.FragmentSize(2800, 0, mtu)
	h := header(3, wire.FrameP, 0, 2, size, false) // fragment 1 of 2 never arrives
	rx.reassemble(h, make([]byte, size), now)

	if rx.receiveQueue.Len() != 1 {
		t.Fatalf("receive queue len = %d, want 1 partial frame", rx.receiveQueue.Len())
	}

	swept := rx.receiveQueue.Sweep(now.Add(cfg.ReassemblyTimeout + time.Millisecond))
	if swept != 1 {
		t.Fatalf("Sweep removed %d frames, want 1", swept)
	}
	if calls != 0 {
		t.Fatal("OnFrame was invoked for an incomplete P-frame")
	}
	if rx.receiveQueue.Len() != 0 {
		t.Fatal("receive queue still holds the timed-out frame")
	}
}

// TestReassembleFragmentExceedsFrameCapacityIsRejected guards the
// boundary check required before writing a fragment into the frame
// buffer.
func TestReassembleFragmentExceedsFrameCapacityIsRejected(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFramePayload = 64
	rx := newReceiverOnly(t, cfg, Callbacks{})

	now := time.Now()
	// A single-fragment frame whose 100-byte payload, written at offset 0,
	// exceeds the 64-byte media capacity.
	h := header(9, wire.FrameI, 0, 1, 100, true)
	rx.reassemble(h, make([]byte, 100), now)

	if got := rx.Stats().PacketInvalid; got == 0 {
		t.Fatal("expected packet_invalid to be incremented for an over-capacity fragment")
	}
}
