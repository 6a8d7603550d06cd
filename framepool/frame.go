// Package framepool provides reference-counted, pool-backed buffers for
// RTVT frames. A Frame is an ownership handle: Acquire hands out a handle
// with refcount 1, Retain clones it (incrementing the count), and Release
// drops it, returning the underlying buffer to its originating Pool once
// the count reaches zero.
package framepool

import (
	"sync/atomic"
	"time"

	"github.com/vidrail/rtvt/wire"
)

// State is a Frame's lifecycle state.
type State int

const (
	StateFree State = iota
	StateReceiving
	StateSending
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateReceiving:
		return "receiving"
	case StateSending:
		return "sending"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Frame is a reference-counted buffer holding one logical media or control
// unit. Its capacity buffer is fixed at acquisition time by the owning Pool.
type Frame struct {
	pool *Pool

	refcount int32

	FrameID   uint16
	FrameType wire.FrameType
	State     State

	buf []byte // fixed capacity
	len int

	FirstReceiveTime time.Time
	LastReceiveTime  time.Time
	SendTime         time.Time
	RetransCount     int

	// Tracker holds per-fragment retransmission/reassembly bookkeeping. It is
	// attached by the caller (e.g. tracker.Pool.Acquire) and detached on reset.
	Tracker interface {
		Release()
	}
}

// Payload returns the frame's buffer up to its current length.
func (f *Frame) Payload() []byte {
	return f.buf[:f.len]
}

// Capacity returns the fixed capacity of the frame's buffer.
func (f *Frame) Capacity() int {
	return len(f.buf)
}

// SetPayload copies data into the frame's buffer and sets the logical
// length to len(data). It does not check capacity; callers must bounds-check first.
func (f *Frame) SetPayload(data []byte) {
	copy(f.buf, data)
	f.len = len(data)
}

// WriteAt copies data into the frame's buffer at offset, extending len if
// this write reaches further than any previous one.
func (f *Frame) WriteAt(offset int, data []byte) {
	copy(f.buf[offset:], data)
	if end := offset + len(data); end > f.len {
		f.len = end
	}
}

// Retain increments the reference count and returns the same handle, the
// ownership-clone operation a caller uses to keep a frame alive past the
// point its original owner releases it.
func (f *Frame) Retain() *Frame {
	atomic.AddInt32(&f.refcount, 1)
	return f
}

// Release decrements the reference count. On transition to zero, the frame
// is reset and returned to its originating Pool.
func (f *Frame) Release() {
	if atomic.AddInt32(&f.refcount, -1) > 0 {
		return
	}
	f.pool.release(f)
}

// refs reports the current reference count, for tests and statistics only.
func (f *Frame) refs() int32 {
	return atomic.LoadInt32(&f.refcount)
}

func (f *Frame) reset() {
	if f.Tracker != nil {
		f.Tracker.Release()
		f.Tracker = nil
	}
	f.FrameID = 0
	f.FrameType = 0
	f.State = StateFree
	f.len = 0
	f.FirstReceiveTime = time.Time{}
	f.LastReceiveTime = time.Time{}
	f.SendTime = time.Time{}
	f.RetransCount = 0
}
