package refcount

import (
	"errors"
	"fmt"
)

var (
	// ErrUseAfterDispose is returned from Acquire() when the Counter has been
	// disposed, and reported as warning when a Release func is called after
	// the Counter has been disposed.
	ErrUseAfterDispose = errors.New("refcount: counter used after it was disposed")
	// ErrUnbalancedRelease is used when a Release func is called more than
	// once, or when the reference count is already zero.
	ErrUnbalancedRelease = errors.New("refcount: release called more times than acquire")
)

// TeardownError is returned from Dispose() when the teardown hook fails.
// The Counter is disposed regardless.
type TeardownError struct {
	Name string // name of the Counter
	Err  error  // error returned from the teardown hook
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("refcount: teardown of '%s' failed: %s", e.Name, e.Err)
}

// Cause returns the error returned from the teardown hook, such that
// errors.Cause() from github.com/pkg/errors unwraps it.
func (e *TeardownError) Cause() error {
	return e.Err
}

// IsTeardownError casts err to *TeardownError.
func IsTeardownError(err error) (e *TeardownError, ok bool) {
	e, ok = err.(*TeardownError)
	return
}
