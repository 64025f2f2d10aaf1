package caching

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/taskcluster/refcounter/runtime"
	"github.com/taskcluster/refcounter/runtime/monitoring"
	"github.com/taskcluster/refcounter/runtime/refcount"
	"go.uber.org/multierr"
)

type cacheEntry struct {
	key      string
	resource Resource
	counter  *refcount.Counter[Resource]
}

// pendingEntry is a resource being constructed, so concurrent calls to
// Require() with the same options can wait for it instead of constructing
// another one.
type pendingEntry struct {
	done chan struct{}
	err  error
}

// A Cache wraps a constructor and manages the life-cycle of the resources it
// creates. Each resource is owned by a refcount.Counter, created with the
// refcount.Options given to New(), Options.Name is set per resource.
type Cache struct {
	m           sync.Mutex
	entries     map[string]*cacheEntry
	creating    map[string]*pendingEntry
	constructor Constructor
	options     refcount.Options
	monitor     runtime.Monitor
}

// New returns a Cache wrapping constructor, such that resources returned from
// Require are shared between all calls to Require with the same options.
func New(constructor Constructor, options refcount.Options) *Cache {
	if options.Monitor == nil {
		options.Monitor = monitoring.NewDiscardMonitor()
	}
	return &Cache{
		entries:     make(map[string]*cacheEntry),
		creating:    make(map[string]*pendingEntry),
		constructor: constructor,
		options:     options,
		monitor:     options.Monitor.WithPrefix("cache"),
	}
}

// acquire a handle for key, returns nil if there is no live entry.
func (c *Cache) acquire(key string) *Handle {
	// Lock must be held when this is called
	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	resource, release, err := e.counter.Acquire()
	if err != nil {
		// Disposed, but teardown haven't removed it yet
		debug("cache entry '%s' is disposed, ignoring it", key)
		delete(c.entries, key)
		return nil
	}
	return &Handle{resource: resource, release: release}
}

// remove entry from the cache, if it is still the current entry for its key.
func (c *Cache) remove(e *cacheEntry) {
	c.m.Lock()
	defer c.m.Unlock()

	if c.entries[e.key] == e {
		delete(c.entries, e.key)
	}
}

// Require returns a handle for a resource created with the given options.
//
// If a live resource with equivalent options exists, it is shared. Otherwise,
// the constructor is called, concurrent calls with equivalent options wait for
// the same construction. If ctx is done while waiting ctx.Err() is returned.
func (c *Cache) Require(ctx context.Context, options interface{}) (*Handle, error) {
	key := hashJSON(options)

	for {
		c.m.Lock()
		if h := c.acquire(key); h != nil {
			c.m.Unlock()
			debug("cache entry '%s' found in cache", key)
			c.monitor.Count("hit", 1)
			return h, nil
		}

		// Wait for pending construction, if any
		if p, ok := c.creating[key]; ok {
			c.m.Unlock()
			select {
			case <-p.done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			// Retry if the constructing caller gave up, its context isn't ours
			if p.err != nil && !isContextError(p.err) {
				return nil, p.err
			}
			continue
		}

		p := &pendingEntry{done: make(chan struct{})}
		c.creating[key] = p
		c.m.Unlock()

		return c.create(ctx, key, options, p)
	}
}

// ErrConstructorPanic is returned to callers waiting for a construction that
// panicked, the panic itself propagates to the caller that was constructing.
var ErrConstructorPanic = errors.New("caching: resource constructor panicked")

func (c *Cache) create(ctx context.Context, key string, options interface{}, p *pendingEntry) (*Handle, error) {
	debug("cache entry '%s' is being created", key)
	c.monitor.Count("miss", 1)

	// Overwritten unless the constructor panics
	p.err = ErrConstructorPanic
	defer func() {
		c.m.Lock()
		delete(c.creating, key)
		c.m.Unlock()
		close(p.done)
	}()

	resource, err := c.constructor(ctx, options)
	if err != nil {
		if !isContextError(err) {
			err = errors.Wrap(err, "failed to construct resource")
		}
		p.err = err
		return nil, err
	}

	c.m.Lock()
	defer c.m.Unlock()
	p.err = nil

	e := &cacheEntry{key: key, resource: resource}
	counterOptions := c.options
	counterOptions.Name = key[:12]
	e.counter = refcount.New(resource, func(r Resource) error {
		c.remove(e)
		return r.Dispose()
	}, counterOptions)
	c.entries[key] = e

	h := c.acquire(key)
	if h == nil {
		panic("a new cache entry can't be disposed before it is acquired")
	}
	return h, nil
}

func isContextError(err error) bool {
	cause := errors.Cause(err)
	return cause == context.Canceled || cause == context.DeadlineExceeded
}

// Len returns the number of resources in the cache.
func (c *Cache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()

	return len(c.entries)
}

// Purge removes resources from the cache for which filter returns true.
//
// Resources not in use are disposed immediately, resources in use are
// disposed when the last handle is released and the grace period expires.
// Errors disposing resources are combined and returned.
func (c *Cache) Purge(filter func(r Resource) bool) error {
	c.m.Lock()
	var idle []*cacheEntry
	for key, e := range c.entries {
		if !filter(e.resource) {
			continue
		}
		delete(c.entries, key)
		// No new references can be acquired once removed from entries, so
		// the count can't go up again.
		if e.counter.RefCount() == 0 {
			idle = append(idle, e)
		}
	}
	c.m.Unlock()

	// Dispose outside the lock, teardown calls c.remove()
	var err error
	for _, e := range idle {
		err = multierr.Append(err, e.counter.Dispose())
	}
	return err
}

// PurgeAll purges all resources, see Purge().
func (c *Cache) PurgeAll() error {
	return c.Purge(func(Resource) bool { return true })
}

// Close disposes all resources immediately, regardless of whether they are
// in use, handles outstanding must not be used after this.
// This is intended for shutdown.
func (c *Cache) Close() error {
	c.m.Lock()
	entries := c.entries
	c.entries = make(map[string]*cacheEntry)
	c.m.Unlock()

	var err error
	for _, e := range entries {
		err = multierr.Append(err, e.counter.Dispose())
	}
	return err
}
