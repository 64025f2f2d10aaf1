// Package refcount provides Counter, a deferred reference-counted lifecycle
// manager for an expensive, disposable resource.
//
// Consumers Acquire() the counter to borrow the resource and get a Release
// func back. When the last consumer releases, the counter waits a grace
// period of scheduler ticks before calling the teardown hook. Any Acquire()
// during the grace period cancels the pending release, and the grace period
// restarts from the next time the count reaches zero. This absorbs bursts of
// acquire/release in back-to-back ticks without recreating the resource.
//
// A Counter can also be disposed explicitly with Dispose(), regardless of
// how many consumers hold the resource, this is intended for shutdown.
//
// Protocol violations, acquiring after disposal or releasing more times than
// acquired, are reported through the runtime.Monitor. Releasing after disposal
// is a warning and ignored, releasing too many times panics in Strict mode and
// is reported as an error otherwise.
package refcount

import "github.com/taskcluster/refcounter/runtime"

var debug = runtime.Debug("refcount")
