// Package caching provides a cache of shared resources on top of the
// refcount package.
//
// Resources are keyed by the options they were constructed from. While a
// resource is in use by one or more handles it is shared by every call to
// Require() with equivalent options, when the last handle is released the
// resource lingers for the grace period of its refcount.Counter, so a new
// Require() shortly after can re-use it instead of constructing it again.
package caching

import "github.com/taskcluster/refcounter/runtime"

var debug = runtime.Debug("caching")
