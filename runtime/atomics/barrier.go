package atomics

import "sync"

// A Barrier is an atomic primitive that can be lowered once, after which it
// stays permanently lowered. Useful for communicating permanent state
// changes like shutdown.
type Barrier struct {
	m sync.Mutex
	b chan struct{}
}

func (b *Barrier) init() {
	// Lock must be held when this is called
	if b.b == nil {
		b.b = make(chan struct{})
	}
}

// Fall lowers the barrier permanently unblocking anyone waiting for the
// barrier. Returns true, if this call lowered the barrier.
func (b *Barrier) Fall() bool {
	b.m.Lock()
	defer b.m.Unlock()
	b.init()

	select {
	case <-b.b:
		return false
	default:
		close(b.b)
		return true
	}
}

// IsFallen returns true, if the barrier is lowered.
func (b *Barrier) IsFallen() bool {
	select {
	case <-b.Barrier():
		return true
	default:
		return false
	}
}

// Barrier returns a channel that is closed when the barrier is lowered.
func (b *Barrier) Barrier() <-chan struct{} {
	b.m.Lock()
	defer b.m.Unlock()
	b.init()

	return b.b
}
