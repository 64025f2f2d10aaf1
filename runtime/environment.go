package runtime

import "github.com/taskcluster/refcounter/runtime/gc"

// Environment holds the process-wide collaborators shared by everything that
// owns a disposable resource.
type Environment struct {
	GarbageCollector *gc.GarbageCollector
	TemporaryStorage TemporaryStorage
	Monitor          Monitor
}
