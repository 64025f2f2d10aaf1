package simulator

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/taskcluster/refcounter/config"
	"github.com/taskcluster/refcounter/runtime/mocks"
	"github.com/taskcluster/refcounter/runtime/refcount"
	"github.com/taskcluster/refcounter/runtime/scheduler"
	"go.uber.org/goleak"
)

func newConfig(t *testing.T, lifetime int, script ...config.Step) *config.Config {
	root, err := ioutil.TempDir("", "refcounter-simulator")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(root) })

	return &config.Config{
		Lifetime:        lifetime,
		TickInterval:    1,
		Strict:          true,
		TemporaryFolder: filepath.Join(root, "storage"),
		Monitor:         map[string]interface{}{"type": "mock", "panicOnError": true},
		Script:          script,
	}
}

func folders(t *testing.T, c *config.Config) int {
	entries, err := ioutil.ReadDir(c.TemporaryFolder)
	require.NoError(t, err)
	return len(entries)
}

func TestBalancedScript(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := newConfig(t, 2,
		config.Step{Action: config.ActionAcquire, Holder: "a"},
		config.Step{Action: config.ActionAcquire, Holder: "b"},
		config.Step{Action: config.ActionRelease, Holder: "a"},
		config.Step{Action: config.ActionRelease, Holder: "b"},
		config.Step{Action: config.ActionWait, Ticks: 2},
	)
	s, err := New(Options{Config: c})
	require.NoError(t, err)
	require.Equal(t, 1, folders(t, c))

	require.NoError(t, s.Run(context.Background()))
	require.True(t, s.Counter().IsDisposed())
	require.Equal(t, 0, folders(t, c))
	require.NoError(t, s.Close())
}

func TestWaitLifetimeTicksDisposes(t *testing.T) {
	for _, lifetime := range []int{1, 3} {
		c := newConfig(t, lifetime,
			config.Step{Action: config.ActionAcquire, Holder: "a"},
			config.Step{Action: config.ActionRelease, Holder: "a"},
			config.Step{Action: config.ActionWait, Ticks: lifetime},
		)
		s, err := New(Options{Config: c})
		require.NoError(t, err)

		require.NoError(t, s.Run(context.Background()))
		require.Equal(t, refcount.Disposed, s.Counter().State(), "lifetime %d", lifetime)
		require.Equal(t, 0, folders(t, c))
		require.NoError(t, s.Close())
	}
}

func TestWaitShorterThanLifetimeKeepsResource(t *testing.T) {
	c := newConfig(t, 3,
		config.Step{Action: config.ActionAcquire, Holder: "a"},
		config.Step{Action: config.ActionRelease, Holder: "a"},
		config.Step{Action: config.ActionWait, Ticks: 1},
	)
	sched := &scheduler.ManualScheduler{}
	s, err := New(Options{Config: c, Scheduler: sched})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- s.Run(context.Background())
	}()
	// The pending release and the wait step
	sched.AwaitWaiting(2)
	sched.Tick()
	require.NoError(t, <-done)
	require.Equal(t, refcount.Draining, s.Counter().State())

	sched.Tick()
	require.Equal(t, refcount.Draining, s.Counter().State())
	sched.Tick()
	require.Equal(t, refcount.Disposed, s.Counter().State())
	require.NoError(t, s.Close())
}

func TestDisposeStep(t *testing.T) {
	c := newConfig(t, 1,
		config.Step{Action: config.ActionAcquire, Holder: "a"},
		config.Step{Action: config.ActionDispose},
		config.Step{Action: config.ActionAcquire, Holder: "b"},
		config.Step{Action: config.ActionRelease, Holder: "a"},
	)
	monitor := mocks.NewMockMonitor(true)
	s, err := New(Options{Config: c, Monitor: monitor})
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))
	require.True(t, s.Counter().IsDisposed())
	require.Equal(t, refcount.Disposed, s.Counter().State())
	require.Equal(t, 0, folders(t, c))
	require.Len(t, monitor.ReportedWarnings(), 1)
	require.NoError(t, s.Close())
}

func TestReleaseWithoutReference(t *testing.T) {
	c := newConfig(t, 1,
		config.Step{Action: config.ActionRelease, Holder: "a"},
	)
	s, err := New(Options{Config: c})
	require.NoError(t, err)
	defer s.Close()

	require.Error(t, s.Run(context.Background()))
	require.False(t, s.Counter().IsDisposed())
}

func TestCloseDisposesOutstanding(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := newConfig(t, 100,
		config.Step{Action: config.ActionAcquire, Holder: "a"},
	)
	s, err := New(Options{Config: c})
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, 1, s.Counter().RefCount())
	require.NoError(t, s.Close())
	require.True(t, s.Counter().IsDisposed())
	require.Equal(t, 0, folders(t, c))
}

func TestRunCanceled(t *testing.T) {
	c := newConfig(t, 1,
		config.Step{Action: config.ActionWait, Ticks: 1000},
	)
	s, err := New(Options{Config: c, Scheduler: &scheduler.ManualScheduler{}})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	err = s.Run(ctx)
	require.Equal(t, context.Canceled, errors.Cause(err))
}
