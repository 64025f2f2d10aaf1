package atomics

import "sync"

// Once is similar to sync.Once except that once.Do() returns true, if this
// was the call that invoked f.
//
// Callers of once.Do() that lose the race block until f has returned, so
// when Do returns, f is done regardless of who called it. Done() returns a
// channel that is closed once f has returned, this is useful for select.
//
// once.Do(nil) will not panic, but act similar to once.Do(func(){}).
type Once struct {
	m    sync.Mutex // held while f() is running
	cm   sync.Mutex // guards c
	done Bool
	c    chan struct{}
}

func (o *Once) channel() chan struct{} {
	// o.cm must be held when this is called
	if o.c == nil {
		o.c = make(chan struct{})
	}
	return o.c
}

// Do will call f() and return true, the first time once.Do() is called.
// All following calls to once.Do() will not call f() and return false.
//
// If f panics the Once is still considered done.
func (o *Once) Do(f func()) bool {
	if o.done.Get() {
		return false
	}

	o.m.Lock()
	defer o.m.Unlock()

	if o.done.Get() {
		return false
	}

	// Set done and close channel regardless of panic
	defer func() {
		o.done.Set(true)
		o.cm.Lock()
		close(o.channel())
		o.cm.Unlock()
	}()

	if f != nil {
		f()
	}
	return true
}

// IsDone returns true, if once.Do() has been called and f has returned.
func (o *Once) IsDone() bool {
	return o.done.Get()
}

// Done returns a channel that is closed when once.Do() has been called and
// f has returned.
func (o *Once) Done() <-chan struct{} {
	if o.done.Get() {
		return closedChannel
	}

	o.cm.Lock()
	defer o.cm.Unlock()
	return o.channel()
}

// Wait will block until once.Do() have been called and f has returned.
func (o *Once) Wait() {
	<-o.Done()
}

var closedChannel = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()
