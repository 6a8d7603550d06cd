package tracker

import "sync"

// Pool is a slab allocator keyed by capacity class, one free list per class,
// each guarded by its own short-duration mutex.
type Pool struct {
	classes [len(slabClasses)]classFreeList
}

type classFreeList struct {
	mu   sync.Mutex
	free []*Tracker
}

// NewPool creates an empty slab pool; trackers are allocated on first demand.
func NewPool() *Pool {
	return &Pool{}
}

func classIndexFor(n int) (int, bool) {
	for i, c := range slabClasses {
		if c >= n {
			return i, true
		}
	}
	return 0, false
}

// Acquire returns a tracker of the smallest slab class with capacity >= n,
// with all n logical slots reset: FragIndex set to the slot's index, every
// other field zero. It fails with ErrTooLarge if n exceeds MaxCapacity.
func (p *Pool) Acquire(n int) (*Tracker, error) {
	idx, ok := classIndexFor(n)
	if !ok {
		return nil, ErrTooLarge
	}
	class := slabClasses[idx]

	fl := &p.classes[idx]
	fl.mu.Lock()
	var t *Tracker
	if m := len(fl.free); m > 0 {
		t = fl.free[m-1]
		fl.free = fl.free[:m-1]
	}
	fl.mu.Unlock()

	if t == nil {
		t = &Tracker{
			pool:  p,
			class: class,
			slots: make([]Slot, class),
		}
	}

	t.length = n
	t.acked = 0
	for i := range t.slots[:n] {
		t.slots[i] = Slot{FragIndex: uint16(i)}
	}
	return t, nil
}

func (p *Pool) release(t *Tracker) {
	idx, _ := classIndexFor(t.class)
	t.length = 0

	fl := &p.classes[idx]
	fl.mu.Lock()
	fl.free = append(fl.free, t)
	fl.mu.Unlock()
}
