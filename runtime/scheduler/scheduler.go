package scheduler

import (
	"context"
	"sync"
)

// A Scheduler releases waiting goroutines once per tick.
type Scheduler interface {
	// WaitTick blocks until the next tick and returns nil, or returns
	// ctx.Err() if ctx is done first.
	WaitTick(ctx context.Context) error
	// AfterFunc registers f to be called by the tick that happens ticks
	// ticks from now. The registration is in place when AfterFunc returns,
	// so a tick that happens right after the call is counted. f is called
	// before goroutines blocked in WaitTick for the same tick are released.
	AfterFunc(ticks int, f func()) *Timer
}

// generation is the set of goroutines waiting for the same tick.
type generation struct {
	tick    chan struct{}
	waiting int
}

// Timer is a callback registered with AfterFunc.
type Timer struct {
	s        *ManualScheduler
	f        func()
	deadline uint64
}

// Stop prevents the Timer from firing. Returns false, if the Timer has
// already fired or been stopped.
//
// If Stop returns false because the Timer fired, f may still be running, or
// about to run, on the goroutine that called Tick().
func (t *Timer) Stop() bool {
	return t.s.stop(t)
}

// ManualScheduler is a Scheduler that ticks when Tick() is called.
//
// The zero-value is ready to use.
type ManualScheduler struct {
	m       sync.Mutex
	c       sync.Cond
	current *generation
	timers  map[*Timer]struct{}
	ticks   uint64
}

func (s *ManualScheduler) init() {
	// Lock must be held when this is called
	if s.c.L == nil {
		s.c.L = &s.m
	}
	if s.current == nil {
		s.current = &generation{tick: make(chan struct{})}
	}
	if s.timers == nil {
		s.timers = make(map[*Timer]struct{})
	}
}

// WaitTick blocks until Tick() is called or ctx is done.
func (s *ManualScheduler) WaitTick(ctx context.Context) error {
	s.m.Lock()
	// Checked under the lock, so once ctx is canceled nobody can start
	// waiting with it, this makes AwaitWaiting() reliable.
	if err := ctx.Err(); err != nil {
		s.m.Unlock()
		return err
	}
	s.init()
	g := s.current
	g.waiting++
	s.c.Broadcast()
	s.m.Unlock()

	select {
	case <-g.tick:
		return nil
	case <-ctx.Done():
		s.m.Lock()
		// If the tick happened concurrently, g is no longer current and its
		// waiters have already been accounted for.
		if g == s.current {
			g.waiting--
			s.c.Broadcast()
		}
		s.m.Unlock()
		return ctx.Err()
	}
}

// AfterFunc calls f from the Tick() call that makes it ticks ticks from now,
// values less than 1 mean the next tick.
func (s *ManualScheduler) AfterFunc(ticks int, f func()) *Timer {
	if ticks < 1 {
		ticks = 1
	}

	s.m.Lock()
	defer s.m.Unlock()
	s.init()

	t := &Timer{s: s, f: f, deadline: s.ticks + uint64(ticks)}
	s.timers[t] = struct{}{}
	s.c.Broadcast()
	return t
}

func (s *ManualScheduler) stop(t *Timer) bool {
	s.m.Lock()
	defer s.m.Unlock()
	s.init()

	if _, ok := s.timers[t]; !ok {
		return false
	}
	delete(s.timers, t)
	s.c.Broadcast()
	return true
}

// Tick calls the timers that are due, then releases all goroutines currently
// blocked in WaitTick.
//
// Timers are called on the goroutine calling Tick(), without holding any
// locks, so they may call Stop() or AfterFunc().
func (s *ManualScheduler) Tick() {
	s.m.Lock()
	s.init()

	s.ticks++
	g := s.current
	s.current = &generation{tick: make(chan struct{})}
	var due []*Timer
	for t := range s.timers {
		if t.deadline <= s.ticks {
			due = append(due, t)
			delete(s.timers, t)
		}
	}
	debug("tick %d releasing %d waiters and %d timers", s.ticks, g.waiting, len(due))
	s.c.Broadcast()
	s.m.Unlock()

	// Waiters must be released even if a timer panics
	defer close(g.tick)
	for _, t := range due {
		t.f()
	}
}

// Ticks returns the number of ticks that have happened.
func (s *ManualScheduler) Ticks() uint64 {
	s.m.Lock()
	defer s.m.Unlock()

	return s.ticks
}

// Waiting returns the number of goroutines blocked waiting for the next tick
// plus the number of timers that have not yet fired.
func (s *ManualScheduler) Waiting() int {
	s.m.Lock()
	defer s.m.Unlock()
	s.init()

	return s.current.waiting + len(s.timers)
}

// AwaitWaiting blocks until exactly n goroutines and timers are waiting for
// future ticks. This is useful in tests, to ensure that background work is
// parked before calling Tick().
func (s *ManualScheduler) AwaitWaiting(n int) {
	s.m.Lock()
	defer s.m.Unlock()
	s.init()

	for s.current.waiting+len(s.timers) != n {
		s.c.Wait()
	}
}
