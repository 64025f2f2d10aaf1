// Package gc contains DisposableBase, the two-phase idempotent disposal
// primitive shared resources are built on, and the GarbageCollector that
// tracks live disposables so they can all be torn down on shutdown.
//
// Shared resources like temporary folders, loaded images or open handles are
// expensive to create and must be released exactly once. A resource embeds
// or wraps a DisposableBase, supplying hooks for releasing the state it holds
// and for releasing the underlying resource. Dispose() runs these hooks once,
// no matter how many goroutines call it.
package gc
