package refcount

import (
	"errors"
	"sync"
	"testing"
	"time"

	perrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskcluster/refcounter/runtime/gc"
	"github.com/taskcluster/refcounter/runtime/mocks"
	"github.com/taskcluster/refcounter/runtime/scheduler"
	"go.uber.org/goleak"
)

type res struct {
	m        sync.Mutex
	Value    int
	Disposed int
}

func (r *res) dispose() error {
	r.m.Lock()
	defer r.m.Unlock()
	r.Disposed++
	return nil
}

func (r *res) disposeCount() int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.Disposed
}

type fixture struct {
	s       *scheduler.ManualScheduler
	monitor *mocks.MockMonitor
	r       *res
	c       *Counter[*res]
}

func newFixture(lifetime int) *fixture {
	f := &fixture{
		s:       &scheduler.ManualScheduler{},
		monitor: mocks.NewMockMonitor(false),
		r:       &res{Value: 42},
	}
	f.c = New(f.r, (*res).dispose, Options{
		Lifetime:  lifetime,
		Scheduler: f.s,
		Monitor:   f.monitor,
		Name:      "test",
	})
	return f
}

func waitDisposed(t *testing.T, c *Counter[*res]) {
	select {
	case <-c.Disposed():
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for counter to be disposed")
	}
}

func acquire(t *testing.T, c *Counter[*res]) Release {
	r, release, err := c.Acquire()
	require.NoError(t, err)
	require.NotNil(t, r)
	require.NotNil(t, release)
	return release
}

func TestDisposedAfterOneTick(t *testing.T) {
	f := newFixture(1)
	require.Equal(t, Idle, f.c.State())

	r, release, err := f.c.Acquire()
	require.NoError(t, err)
	require.Equal(t, 42, r.Value)
	require.Equal(t, 1, f.c.RefCount())
	require.Equal(t, Active, f.c.State())

	release()
	require.Equal(t, 0, f.c.RefCount())
	require.Equal(t, Draining, f.c.State())
	require.False(t, f.c.IsDisposed())

	require.Equal(t, 1, f.s.Waiting())
	require.Equal(t, 0, f.r.disposeCount(), "must not dispose before the tick")
	f.s.Tick()

	require.True(t, f.c.IsDisposed())
	require.Equal(t, Disposed, f.c.State())
	require.Equal(t, 1, f.r.disposeCount())
	require.Equal(t, float64(1), f.monitor.CounterValue("refcount.disposed"))
	require.Equal(t, []float64{1}, f.monitor.Measures("refcount.grace-ticks"))
}

func TestZeroLifetimeDisposesOnNextTick(t *testing.T) {
	f := newFixture(0)
	acquire(t, f.c)()

	f.s.Tick()
	require.True(t, f.c.IsDisposed())
	require.Equal(t, 1, f.r.disposeCount())
}

func TestTickRightAfterReleaseCounts(t *testing.T) {
	for _, lifetime := range []int{1, 2, 5} {
		f := newFixture(lifetime)
		acquire(t, f.c)()

		for i := 1; i < lifetime; i++ {
			f.s.Tick()
			require.False(t, f.c.IsDisposed(), "disposed after %d of %d ticks", i, lifetime)
		}
		f.s.Tick()
		require.True(t, f.c.IsDisposed(), "not disposed after %d ticks", lifetime)
		require.Equal(t, Disposed, f.c.State())
		require.Equal(t, 1, f.r.disposeCount())
		require.Equal(t, uint64(lifetime), f.s.Ticks())
	}
}

func TestTicksBeforeReleaseDoNotCount(t *testing.T) {
	f := newFixture(2)
	release := acquire(t, f.c)
	f.s.Tick()
	f.s.Tick()

	release()
	f.s.Tick()
	require.False(t, f.c.IsDisposed())
	f.s.Tick()
	require.True(t, f.c.IsDisposed())
}

func TestAcquireDuringGracePeriodRestartsIt(t *testing.T) {
	f := newFixture(2)

	acquire(t, f.c)()
	f.s.Tick() // first tick of the grace period
	require.Equal(t, 1, f.s.Waiting())

	// Acquire before the second tick cancels the pending release
	release := acquire(t, f.c)
	require.Equal(t, 0, f.s.Waiting())
	require.Equal(t, Active, f.c.State())
	require.Equal(t, float64(1), f.monitor.CounterValue("refcount.release-canceled"))

	f.s.Tick() // nobody waiting, the original release would have fired here
	require.False(t, f.c.IsDisposed())

	// Grace period restarts from zero
	release()
	f.s.Tick()
	require.False(t, f.c.IsDisposed(), "grace period must restart, not resume")
	require.Equal(t, 0, f.r.disposeCount())

	f.s.Tick()
	require.True(t, f.c.IsDisposed())
	require.Equal(t, 1, f.r.disposeCount())

	// More ticks don't dispose twice
	f.s.Tick()
	f.s.Tick()
	require.Equal(t, 1, f.r.disposeCount())
	require.Equal(t, 0, f.s.Waiting())
}

func TestPendingReleasesDoNotLeak(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	// Canceled checks are unregistered, at most one is pending
	f := newFixture(2)
	for i := 0; i < 10; i++ {
		acquire(t, f.c)()
		require.Equal(t, 1, f.s.Waiting())
	}
	require.NoError(t, f.c.Dispose())
	require.Equal(t, 0, f.s.Waiting())

	// The check that disposes is gone once it has fired
	f = newFixture(1)
	acquire(t, f.c)()
	f.s.Tick()
	require.True(t, f.c.IsDisposed())
	require.Equal(t, 0, f.s.Waiting())
}

func TestPartialReleaseDoesNotStartGracePeriod(t *testing.T) {
	f := newFixture(1)

	acquire(t, f.c)
	release := acquire(t, f.c)
	release()

	require.Equal(t, 1, f.c.RefCount())
	require.Equal(t, Active, f.c.State())
	require.Equal(t, 0, f.s.Waiting())
	require.False(t, f.monitor.HasCounter("refcount.release-scheduled"))

	f.s.Tick()
	require.False(t, f.c.IsDisposed())
	require.Equal(t, 0, f.r.disposeCount())
}

func TestExplicitDisposeWithOutstandingReferences(t *testing.T) {
	f := newFixture(1)

	releases := []Release{acquire(t, f.c), acquire(t, f.c), acquire(t, f.c)}
	require.Equal(t, 3, f.c.RefCount())

	require.NoError(t, f.c.Dispose())
	require.True(t, f.c.IsDisposed())
	require.Equal(t, 1, f.r.disposeCount())

	// Release from a holder is ignored with a warning
	releases[0]()
	require.Equal(t, 1, f.r.disposeCount())
	warnings := f.monitor.ReportedWarnings()
	require.Len(t, warnings, 1)
	require.Equal(t, ErrUseAfterDispose, warnings[0])
	require.Empty(t, f.monitor.ReportedErrors())
	require.Equal(t, 0, f.s.Waiting())

	// Acquire is refused
	r, release, err := f.c.Acquire()
	require.Equal(t, ErrUseAfterDispose, err)
	require.Nil(t, r)
	require.Nil(t, release)

	require.NoError(t, f.c.Dispose())
	require.Equal(t, 1, f.r.disposeCount())
}

func TestExplicitDisposeWhileDraining(t *testing.T) {
	f := newFixture(3)

	acquire(t, f.c)()
	require.Equal(t, Draining, f.c.State())

	require.NoError(t, f.c.Dispose())
	require.Equal(t, 1, f.r.disposeCount())

	// The pending check is canceled without a second teardown
	require.Equal(t, 0, f.s.Waiting())
	for i := 0; i < 5; i++ {
		f.s.Tick()
	}
	require.Equal(t, 1, f.r.disposeCount())
	require.Empty(t, f.monitor.ReportedErrors())
}

func TestFreshCounterIsNotDisposedByTicks(t *testing.T) {
	f := newFixture(1)
	f.s.Tick()
	f.s.Tick()
	require.Equal(t, Idle, f.c.State())
	require.False(t, f.c.IsDisposed())
}

func TestDoubleReleaseStrict(t *testing.T) {
	s := &scheduler.ManualScheduler{}
	r := &res{}
	c := New(r, (*res).dispose, Options{Lifetime: 1, Scheduler: s, Strict: true})

	release := acquire(t, c)
	acquire(t, c)
	release()
	require.PanicsWithValue(t, ErrUnbalancedRelease, func() { release() })
	require.Equal(t, 1, c.RefCount())
}

func TestDoubleReleaseReported(t *testing.T) {
	f := newFixture(1)

	release := acquire(t, f.c)
	acquire(t, f.c)
	release()
	release()

	require.Equal(t, 1, f.c.RefCount(), "count must not be decremented twice")
	errs := f.monitor.ReportedErrors()
	require.Len(t, errs, 1)
	require.Equal(t, ErrUnbalancedRelease, errs[0])
}

func TestTeardownErrorFromDispose(t *testing.T) {
	s := &scheduler.ManualScheduler{}
	hookErr := errors.New("unload failed")
	calls := 0
	c := New("resource", func(string) error {
		calls++
		return hookErr
	}, Options{Scheduler: s, Name: "asset"})

	err := c.Dispose()
	require.Error(t, err)
	terr, ok := IsTeardownError(err)
	require.True(t, ok)
	require.Equal(t, "asset", terr.Name)
	require.Equal(t, hookErr, perrors.Cause(err))
	require.True(t, c.IsDisposed())

	require.NoError(t, c.Dispose())
	require.Equal(t, 1, calls)
}

func TestTeardownErrorOnDelayedRelease(t *testing.T) {
	s := &scheduler.ManualScheduler{}
	monitor := mocks.NewMockMonitor(false)
	c := New("resource", func(string) error {
		return errors.New("unload failed")
	}, Options{Lifetime: 1, Scheduler: s, Monitor: monitor})

	_, release, err := c.Acquire()
	require.NoError(t, err)
	release()
	s.Tick()

	require.True(t, c.IsDisposed())
	require.Len(t, monitor.ReportedErrors(), 1)
	_, ok := IsTeardownError(monitor.ReportedErrors()[0])
	require.True(t, ok)
	require.Equal(t, float64(1), monitor.CounterValue("refcount.teardown-failed"))
}

func TestTeardownPanicOnDelayedRelease(t *testing.T) {
	s := &scheduler.ManualScheduler{}
	monitor := mocks.NewMockMonitor(false)
	c := New(1, func(int) error {
		panic("teardown exploded")
	}, Options{Lifetime: 1, Scheduler: s, Monitor: monitor})

	_, release, err := c.Acquire()
	require.NoError(t, err)
	release()
	require.NotPanics(t, s.Tick)

	require.Len(t, monitor.ReportedErrors(), 1)
	require.True(t, c.IsDisposed())
}

func TestConcurrentReleasesDisposeOnce(t *testing.T) {
	f := newFixture(1)

	const holders = 50
	releases := make([]Release, holders)
	for i := range releases {
		releases[i] = acquire(t, f.c)
	}

	var wg sync.WaitGroup
	for _, release := range releases {
		wg.Add(1)
		go func(release Release) {
			defer wg.Done()
			release()
		}(release)
	}
	wg.Wait()

	require.Equal(t, 0, f.c.RefCount())
	require.Equal(t, 1, f.s.Waiting())
	f.s.Tick()
	require.True(t, f.c.IsDisposed())
	require.Equal(t, 1, f.r.disposeCount())
	require.Equal(t, float64(1), f.monitor.CounterValue("refcount.release-scheduled"))
}

func TestConcurrentAcquireReleaseWithTicker(t *testing.T) {
	ticker := scheduler.NewTicker(50 * time.Microsecond)
	defer ticker.Stop()

	r := &res{}
	c := New(r, (*res).dispose, Options{Lifetime: 1, Scheduler: ticker, Strict: true})

	// Hold a reference, so the resource survives the churn below
	hold := acquire(t, c)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_, release, err := c.Acquire()
				if !assert.NoError(t, err) {
					return
				}
				release()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 0, r.disposeCount())

	hold()
	waitDisposed(t, c)
	require.Equal(t, 1, r.disposeCount())
}

func TestConcurrentDisposeAndRelease(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(0)
		release := acquire(t, f.c)

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			release()
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, f.c.Dispose())
		}()
		go func() {
			defer wg.Done()
			f.s.Tick()
		}()
		wg.Wait()

		waitDisposed(t, f.c)
		f.s.Tick()
		require.Equal(t, 1, f.r.disposeCount())
	}
}

func TestStateIsDisposedDuringTeardown(t *testing.T) {
	s := &scheduler.ManualScheduler{}
	var c *Counter[string]
	var observed State
	var acquireErr error
	c = New("resource", func(string) error {
		observed = c.State()
		_, _, acquireErr = c.Acquire()
		return nil
	}, Options{Lifetime: 1, Scheduler: s})

	_, release, err := c.Acquire()
	require.NoError(t, err)
	release()
	s.Tick()

	require.Equal(t, Disposed, observed)
	require.Equal(t, ErrUseAfterDispose, acquireErr)

	// Explicit disposal of an active counter too
	c = New("resource", func(string) error {
		observed = c.State()
		return nil
	}, Options{Scheduler: s})
	_, _, err = c.Acquire()
	require.NoError(t, err)
	require.NoError(t, c.Dispose())
	require.Equal(t, Disposed, observed)
}

func TestTrackerRegistration(t *testing.T) {
	var collector gc.GarbageCollector
	s := &scheduler.ManualScheduler{}

	r1, r2 := &res{}, &res{}
	c1 := New(r1, (*res).dispose, Options{Scheduler: s, Tracker: &collector})
	New(r2, (*res).dispose, Options{Scheduler: s, Tracker: &collector})
	require.Equal(t, 2, collector.Len())

	require.NoError(t, c1.Dispose())
	require.Equal(t, 1, collector.Len())

	// Shutdown path disposes everything still alive
	require.NoError(t, collector.CollectAll())
	require.Equal(t, 1, r1.disposeCount())
	require.Equal(t, 1, r2.disposeCount())
}

func TestNewValidatesOptions(t *testing.T) {
	require.Panics(t, func() { New(1, nil, Options{}) })
	require.Panics(t, func() {
		New(1, nil, Options{Scheduler: &scheduler.ManualScheduler{}, Lifetime: -1})
	})

	c := New(1, nil, Options{Scheduler: &scheduler.ManualScheduler{}})
	require.NotEmpty(t, c.Name())
	require.NoError(t, c.Dispose())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "idle", Idle.String())
	require.Equal(t, "active", Active.String())
	require.Equal(t, "draining", Draining.String())
	require.Equal(t, "disposed", Disposed.String())
	require.Equal(t, "unknown", State(42).String())
}
