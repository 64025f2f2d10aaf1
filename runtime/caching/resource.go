package caching

import "context"

// A Resource that can be cached must also be disposable
type Resource interface {
	Dispose() error
}

// A Constructor is function that given options creates a resource.
//
// Notice, options must be JSON serializable, as they will be hashed to
// determine resource equivalence.
type Constructor func(ctx context.Context, options interface{}) (Resource, error)
