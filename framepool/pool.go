package framepool

import "sync"

// Pool is a free list of fixed-capacity Frames, guarded by a short-duration
// mutex. Growth under load is unbounded by contract; the lock is dropped
// before allocating a new buffer so a slow allocation never blocks other
// acquirers.
type Pool struct {
	mu        sync.Mutex
	free      []*Frame
	payloadCap int

	// outstanding counts frames currently acquired (refcount > 0), purely
	// for an owner's leak warning at shutdown.
	outstanding int
}

// NewPool creates a Pool with initialCount pre-allocated frames, each with
// the given payload capacity.
func NewPool(initialCount, payloadCap int) *Pool {
	p := &Pool{
		payloadCap: payloadCap,
		free:       make([]*Frame, 0, initialCount),
	}
	for i := 0; i < initialCount; i++ {
		p.free = append(p.free, p.newFrame())
	}
	return p
}

func (p *Pool) newFrame() *Frame {
	return &Frame{
		pool: p,
		buf:  make([]byte, p.payloadCap),
	}
}

// Acquire pops a frame from the free list, allocating a new one if empty.
// The returned frame has refcount 1, state Free, and length 0; its buffer
// content is unspecified.
func (p *Pool) Acquire() *Frame {
	p.mu.Lock()
	n := len(p.free)
	if n == 0 {
		p.mu.Unlock()

		f := p.newFrame()
		f.refcount = 1

		p.mu.Lock()
		p.outstanding++
		p.mu.Unlock()

		return f
	}

	f := p.free[n-1]
	p.free = p.free[:n-1]
	p.outstanding++
	p.mu.Unlock()

	f.refcount = 1
	return f
}

// release returns f to the free list. Called only by Frame.Release once the
// reference count reaches zero.
func (p *Pool) release(f *Frame) {
	f.reset()

	p.mu.Lock()
	p.outstanding--
	p.free = append(p.free, f)
	p.mu.Unlock()
}

// Outstanding returns the number of frames currently acquired and not yet
// released, used by transport.Endpoint.Close to warn about leaks.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

// PayloadCap returns the fixed per-frame payload capacity this Pool hands out.
func (p *Pool) PayloadCap() int {
	return p.payloadCap
}
