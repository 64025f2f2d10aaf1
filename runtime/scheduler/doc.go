// Package scheduler provides the cooperative tick scheduler delayed work
// waits on.
//
// A tick is one discrete unit of progress. Goroutines waiting for a tick park
// in WaitTick and are all released together when the tick happens. The
// ManualScheduler ticks when told to, which makes tests deterministic, and
// the Ticker ticks on a wall-clock interval.
//
// Work that must count ticks from a specific moment registers a Timer with
// AfterFunc instead, the registration is synchronous so no tick is missed
// between deciding to wait and starting to wait.
package scheduler

import "github.com/taskcluster/refcounter/runtime"

var debug = runtime.Debug("scheduler")
