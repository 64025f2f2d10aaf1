package refcount

import (
	"fmt"
	"sync"

	"github.com/taskcluster/refcounter/runtime"
	"github.com/taskcluster/refcounter/runtime/atomics"
	"github.com/taskcluster/refcounter/runtime/gc"
	"github.com/taskcluster/refcounter/runtime/monitoring"
	"github.com/taskcluster/refcounter/runtime/scheduler"
	"github.com/taskcluster/slugid-go/slugid"
)

// Release gives back a reference obtained from Counter.Acquire(), it must be
// called exactly once.
type Release func()

// Options for New()
type Options struct {
	// Lifetime is the number of ticks to wait after the reference count
	// reaches zero before the resource is disposed. 0 and 1 both mean the
	// resource is disposed on the next tick.
	Lifetime int
	// Scheduler the delayed release is registered with, required. The
	// teardown hook of a delayed release runs on the goroutine that ticks it.
	Scheduler scheduler.Scheduler
	// Monitor for logs, counters and error reports, defaults to a monitor
	// that discards everything.
	Monitor runtime.Monitor
	// Tracker the Counter registers itself with until disposed, optional.
	Tracker gc.ResourceTracker
	// Strict causes unbalanced releases to panic instead of being reported.
	Strict bool
	// Name used in logs and errors, defaults to a random slugid.
	Name string
}

type releaseCheck struct {
	timer *scheduler.Timer
}

// Counter holds a resource of type T and a count of references to it.
//
// When the count goes from one to zero a delayed release is started, if no
// reference is acquired for Lifetime ticks the teardown hook is called and
// the Counter is disposed. At most one delayed release is pending at any time.
//
// All methods are safe for concurrent use.
type Counter[T any] struct {
	m        sync.Mutex
	resource T
	refCount int
	pending  *releaseCheck
	closing  bool // set when disposal starts, Acquire() is refused after this

	teardown  func(T) error
	lifetime  int
	scheduler scheduler.Scheduler
	monitor   runtime.Monitor
	tracker   gc.ResourceTracker
	strict    bool
	name      string
	base      gc.DisposableBase
}

// New returns a Counter holding resource, with a reference count of zero.
//
// teardown is called with resource exactly once, when the Counter is
// disposed. teardown must not call Dispose() on the Counter.
func New[T any](resource T, teardown func(T) error, options Options) *Counter[T] {
	if options.Scheduler == nil {
		panic("refcount.New: Options.Scheduler is required")
	}
	if options.Lifetime < 0 {
		panic(fmt.Sprintf("refcount.New: Options.Lifetime must be >= 0, got %d", options.Lifetime))
	}
	if teardown == nil {
		teardown = func(T) error { return nil }
	}
	if options.Monitor == nil {
		options.Monitor = monitoring.NewDiscardMonitor()
	}
	if options.Name == "" {
		options.Name = slugid.Nice()
	}

	c := &Counter[T]{
		resource:  resource,
		teardown:  teardown,
		lifetime:  options.Lifetime,
		scheduler: options.Scheduler,
		monitor:   options.Monitor.WithPrefix("refcount").WithTag("counter", options.Name),
		tracker:   options.Tracker,
		strict:    options.Strict,
		name:      options.Name,
	}
	c.base.DisposeState = c.disposeState
	c.base.DisposeResource = c.disposeResource

	if c.tracker != nil {
		c.tracker.Register(c)
	}
	return c
}

// Name returns the name of the Counter
func (c *Counter[T]) Name() string {
	return c.name
}

// Acquire a reference to the resource.
//
// Returns the resource and a Release func that must be called exactly once
// when the caller is done with the resource. Any pending delayed release is
// canceled.
//
// Returns ErrUseAfterDispose, if the Counter has been disposed, the resource
// must not be used in that case.
func (c *Counter[T]) Acquire() (T, Release, error) {
	c.m.Lock()
	if c.closing {
		c.m.Unlock()
		debug("counter '%s' acquired after dispose", c.name)
		var zero T
		return zero, nil, ErrUseAfterDispose
	}
	c.refCount++
	canceled := c.cancelPending()
	resource := c.resource
	refCount := c.refCount
	c.m.Unlock()

	debug("counter '%s' acquired, refCount: %d", c.name, refCount)
	c.monitor.Count("acquired", 1)
	if canceled {
		c.monitor.Count("release-canceled", 1)
	}

	return resource, c.releaser(), nil
}

func (c *Counter[T]) releaser() Release {
	var released atomics.Bool
	return func() {
		if released.Swap(true) {
			c.violation(ErrUnbalancedRelease, "Release func for counter '", c.name, "' was called twice")
			return
		}
		c.release()
	}
}

func (c *Counter[T]) release() {
	c.m.Lock()
	if c.closing {
		c.m.Unlock()
		c.monitor.ReportWarning(ErrUseAfterDispose,
			"Release ignored, counter '", c.name, "' was disposed while the reference was held",
		)
		return
	}
	if c.refCount == 0 {
		c.m.Unlock()
		c.violation(ErrUnbalancedRelease, "Release for counter '", c.name, "' with refCount zero")
		return
	}
	c.refCount--
	refCount := c.refCount
	if refCount == 0 {
		c.scheduleRelease()
	}
	c.m.Unlock()

	debug("counter '%s' released, refCount: %d", c.name, refCount)
	c.monitor.Count("released", 1)
	if refCount == 0 {
		c.monitor.Count("release-scheduled", 1)
	}
}

// violation handles protocol violations by the caller
func (c *Counter[T]) violation(err error, message ...interface{}) {
	if c.strict {
		panic(err)
	}
	c.monitor.ReportError(err, message...)
}

// cancelPending cancels the pending delayed release, if any. Returns true, if
// a delayed release was canceled.
func (c *Counter[T]) cancelPending() bool {
	// Lock must be held when this is called
	if c.pending == nil {
		return false
	}
	c.pending.timer.Stop()
	c.pending = nil
	return true
}

// scheduleRelease replaces the pending delayed release with a new one.
//
// The timer is registered before the lock is released, so the grace period
// starts at the release, not whenever a goroutine gets around to waiting.
func (c *Counter[T]) scheduleRelease() {
	// Lock must be held when this is called
	c.cancelPending()
	check := &releaseCheck{}
	check.timer = c.scheduler.AfterFunc(c.lifetime, func() {
		c.expire(check)
	})
	c.pending = check
}

// expire disposes the Counter when the grace period of check is over, unless
// check was canceled or the Counter was disposed by other means first.
func (c *Counter[T]) expire(check *releaseCheck) {
	// Stop() can lose the race against a tick that is already firing the
	// timer, so this must still be the current check.
	c.m.Lock()
	if c.pending != check || c.closing || c.refCount != 0 {
		c.m.Unlock()
		return
	}
	c.pending = nil
	c.closing = true
	c.m.Unlock()

	ticks := c.lifetime
	if ticks < 1 {
		ticks = 1
	}
	debug("counter '%s' grace period of %d ticks expired", c.name, ticks)
	c.monitor.Measure("grace-ticks", float64(ticks))

	// There is no caller to return errors to, so we report them.
	var err error
	incidentID := c.monitor.CapturePanic(func() {
		err = c.base.Dispose()
	})
	if incidentID != "" {
		c.monitor.Count("teardown-failed", 1)
		return
	}
	if err != nil {
		c.monitor.ReportError(err, "Delayed release of counter '", c.name, "' failed")
	}
}

func (c *Counter[T]) disposeState() error {
	c.m.Lock()
	c.closing = true
	canceled := c.cancelPending()
	refCount := c.refCount
	c.m.Unlock()

	if canceled {
		c.monitor.Count("release-canceled", 1)
	}
	if refCount > 0 {
		c.monitor.Infof("Disposing counter '%s' with %d references outstanding", c.name, refCount)
	}
	if c.tracker != nil {
		c.tracker.Unregister(c)
	}
	return nil
}

func (c *Counter[T]) disposeResource() error {
	c.m.Lock()
	resource := c.resource
	c.m.Unlock()

	// Clear the resource even if teardown panics
	defer func() {
		var zero T
		c.m.Lock()
		c.resource = zero
		c.m.Unlock()
	}()

	debug("counter '%s' tearing down resource", c.name)
	if err := c.teardown(resource); err != nil {
		c.monitor.Count("teardown-failed", 1)
		return &TeardownError{Name: c.name, Err: err}
	}
	c.monitor.Count("disposed", 1)
	return nil
}

// Dispose the Counter immediately, regardless of outstanding references.
//
// Any pending delayed release is canceled and the teardown hook is called.
// Calling Dispose() more than once is a no-op returning nil, if disposal is
// in progress on another goroutine Dispose blocks until it is done.
//
// If the teardown hook fails a *TeardownError is returned, the Counter is
// disposed regardless.
func (c *Counter[T]) Dispose() error {
	return c.base.Dispose()
}

// IsDisposed returns true, once the teardown hook has run. Once true it will
// never become false.
func (c *Counter[T]) IsDisposed() bool {
	return c.base.IsDisposed()
}

// Disposed returns a channel that is closed when the Counter is disposed.
func (c *Counter[T]) Disposed() <-chan struct{} {
	return c.base.Disposed()
}

// RefCount returns the number of references currently held.
func (c *Counter[T]) RefCount() int {
	c.m.Lock()
	defer c.m.Unlock()

	return c.refCount
}

// State returns the current State of the Counter. A Counter is Disposed as
// soon as disposal starts, that is when Acquire() starts to be refused.
func (c *Counter[T]) State() State {
	c.m.Lock()
	defer c.m.Unlock()

	switch {
	case c.closing:
		return Disposed
	case c.refCount > 0:
		return Active
	case c.pending != nil:
		return Draining
	default:
		return Idle
	}
}
