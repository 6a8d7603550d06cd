// Package framequeue implements an ordered, timeout-aware frame list: an
// indexed collection of owning frame handles backed by a doubly-linked
// list, guarded by a short-duration mutex.
package framequeue

import (
	"container/list"
	"sync"
	"time"

	"github.com/vidrail/rtvt/framepool"
)

// Queue is an ordered list of frames indexed by frame_id, with an
// age-based timeout used by Sweep.
type Queue struct {
	mu      sync.Mutex
	l       *list.List
	Timeout time.Duration
}

// New creates a Queue with the given sweep timeout.
func New(timeout time.Duration) *Queue {
	return &Queue{
		l:       list.New(),
		Timeout: timeout,
	}
}

// Push retains f and appends it to the tail of the queue.
func (q *Queue) Push(f *framepool.Frame) {
	f.Retain()

	q.mu.Lock()
	q.l.PushBack(f)
	q.mu.Unlock()
}

// Pop detaches and returns the head frame without touching its refcount;
// the caller inherits the queue's reference. Returns nil if the queue is
// empty.
func (q *Queue) Pop() *framepool.Frame {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := q.l.Front()
	if e == nil {
		return nil
	}
	q.l.Remove(e)
	return e.Value.(*framepool.Frame)
}

// Find returns a borrowed reference to the frame with the given frame_id,
// or nil if none is queued. Callers must not assume exclusivity over the
// returned frame — another goroutine may remove or mutate it concurrently
// under the queue's lock.
func (q *Queue) Find(frameID uint16) *framepool.Frame {
	q.mu.Lock()
	defer q.mu.Unlock()

	for e := q.l.Front(); e != nil; e = e.Next() {
		f := e.Value.(*framepool.Frame)
		if f.FrameID == frameID {
			return f
		}
	}
	return nil
}

// Remove detaches f from the queue (by identity) and releases it. It
// reports whether f was found.
func (q *Queue) Remove(f *framepool.Frame) bool {
	q.mu.Lock()
	var found *list.Element
	for e := q.l.Front(); e != nil; e = e.Next() {
		if e.Value.(*framepool.Frame) == f {
			found = e
			break
		}
	}
	if found != nil {
		q.l.Remove(found)
	}
	q.mu.Unlock()

	if found == nil {
		return false
	}
	f.Release()
	return true
}

// Sweep releases every frame whose first-receive time is older than the
// queue's Timeout, and returns the count swept.
func (q *Queue) Sweep(now time.Time) int {
	var toRelease []*framepool.Frame

	q.mu.Lock()
	for e := q.l.Front(); e != nil; {
		f := e.Value.(*framepool.Frame)
		next := e.Next()
		if now.Sub(f.FirstReceiveTime) >= q.Timeout {
			q.l.Remove(e)
			toRelease = append(toRelease, f)
		}
		e = next
	}
	q.mu.Unlock()

	for _, f := range toRelease {
		f.Release()
	}
	return len(toRelease)
}

// Len returns the current number of queued frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.l.Len()
}
