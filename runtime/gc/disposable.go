package gc

import (
	"github.com/taskcluster/refcounter/runtime/atomics"
	"go.uber.org/multierr"
)

// The Disposable interface is implemented by resources that can be tracked by
// the GarbageCollector.
//
// Note, all methods on this must be thread-safe, an implementation can be
// obtained by using DisposableBase.
type Disposable interface {
	// Dispose releases the resource, calling Dispose() more than once must be
	// a no-op returning nil.
	Dispose() error
	// IsDisposed returns true, once Dispose() has completed.
	IsDisposed() bool
}

// DisposableBase implements idempotent two-phase disposal.
//
// When disposed DisposeState is called first, to release state held on
// behalf of the resource (timers, registrations, caches), followed by
// DisposeResource which releases the underlying resource itself. Both hooks
// are always attempted, if either fails the errors are combined and returned
// from the Dispose() call that ran them. Either hook may be nil.
//
// The zero-value is a valid DisposableBase with no hooks.
type DisposableBase struct {
	DisposeState    func() error
	DisposeResource func() error
	once            atomics.Once
	err             error
}

// NewDisposableBase returns a DisposableBase with the given hooks.
func NewDisposableBase(disposeState, disposeResource func() error) *DisposableBase {
	return &DisposableBase{
		DisposeState:    disposeState,
		DisposeResource: disposeResource,
	}
}

// Dispose runs the disposal hooks, unless they have already been run.
//
// If another goroutine is currently disposing, Dispose blocks until it is
// done and returns nil. Only the call that ran the hooks returns their errors.
func (d *DisposableBase) Dispose() error {
	var err error
	if !d.once.Do(func() {
		// Run DisposeResource even if DisposeState panics
		defer func() {
			if d.DisposeResource != nil {
				err = multierr.Append(err, d.DisposeResource())
			}
			d.err = err
		}()
		if d.DisposeState != nil {
			err = d.DisposeState()
		}
	}) {
		return nil
	}
	return err
}

// IsDisposed returns true, if Dispose() has completed.
func (d *DisposableBase) IsDisposed() bool {
	return d.once.IsDone()
}

// Disposed returns a channel that is closed when disposal has completed.
func (d *DisposableBase) Disposed() <-chan struct{} {
	return d.once.Done()
}

// Err returns the error from disposal, if any.
func (d *DisposableBase) Err() error {
	if !d.once.IsDone() {
		return nil
	}
	return d.err
}
