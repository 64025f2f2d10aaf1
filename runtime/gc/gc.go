package gc

import (
	"sync"

	"go.uber.org/multierr"
)

// A ResourceTracker is an object capable of tracking resources.
//
// This is the interface for the GarbageCollector that should be exposed to
// resources, such that they can register and unregister themselves.
type ResourceTracker interface {
	Register(resource Disposable)
	Unregister(resource Disposable) bool
}

func indexOfResource(resources []Disposable, resource Disposable) int {
	for i, r := range resources {
		if r == resource {
			return i
		}
	}
	return -1
}

// GarbageCollector tracks Disposable resources, such that everything still
// alive can be disposed when shutting down.
//
// The zero-value is ready to use.
type GarbageCollector struct {
	m         sync.Mutex
	resources []Disposable
}

// Register takes a Disposable resource for the GarbageCollector to track.
// Registering the same resource twice has no effect.
func (gc *GarbageCollector) Register(resource Disposable) {
	gc.m.Lock()
	defer gc.m.Unlock()

	if indexOfResource(gc.resources, resource) == -1 {
		gc.resources = append(gc.resources, resource)
	}
}

// Unregister will inform the GarbageCollector to stop tracking the given
// resource. Returns true if the resource was tracked.
//
// Resources should unregister themselves when disposed.
func (gc *GarbageCollector) Unregister(resource Disposable) bool {
	gc.m.Lock()
	defer gc.m.Unlock()

	i := indexOfResource(gc.resources, resource)
	if i == -1 {
		return false
	}
	gc.resources = append(gc.resources[:i], gc.resources[i+1:]...)
	return true
}

// Len returns the number of resources currently tracked.
func (gc *GarbageCollector) Len() int {
	gc.m.Lock()
	defer gc.m.Unlock()

	return len(gc.resources)
}

// CollectAll disposes all tracked resources, regardless of whether they are
// in use. This is intended for shutdown.
//
// Every resource is attempted, errors are combined and returned.
func (gc *GarbageCollector) CollectAll() error {
	// Take the list, resources unregister themselves from Dispose(), so we
	// can't hold the lock while disposing.
	gc.m.Lock()
	resources := gc.resources
	gc.resources = nil
	gc.m.Unlock()

	var err error
	for _, resource := range resources {
		err = multierr.Append(err, resource.Dispose())
	}
	return err
}
