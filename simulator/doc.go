// Package simulator runs a scripted sequence of acquire, release, wait and
// dispose steps against a refcount.Counter holding a temporary folder. It is
// used by the 'simulate' command to observe the life-cycle of a resource
// under a given configuration.
package simulator

import "github.com/taskcluster/refcounter/runtime"

var debug = runtime.Debug("simulator")
