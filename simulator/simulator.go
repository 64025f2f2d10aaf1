package simulator

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/taskcluster/refcounter/config"
	"github.com/taskcluster/refcounter/runtime"
	"github.com/taskcluster/refcounter/runtime/gc"
	"github.com/taskcluster/refcounter/runtime/monitoring"
	"github.com/taskcluster/refcounter/runtime/refcount"
	"github.com/taskcluster/refcounter/runtime/scheduler"
)

// Options for New()
type Options struct {
	Config *config.Config
	// Monitor defaults to a monitor created from Config.Monitor
	Monitor runtime.Monitor
	// Scheduler defaults to a scheduler.Ticker ticking every
	// Config.TickInterval milliseconds, which is stopped by Close()
	Scheduler scheduler.Scheduler
}

// Simulator owns a Counter[runtime.TemporaryFolder] and the environment it
// lives in.
type Simulator struct {
	script    []config.Step
	env       *runtime.Environment
	monitor   runtime.Monitor
	scheduler scheduler.Scheduler
	ticker    *scheduler.Ticker
	counter   *refcount.Counter[runtime.TemporaryFolder]
	holders   map[string][]refcount.Release
}

// New creates a Simulator, wiping Config.TemporaryFolder and creating a
// fresh temporary folder as the shared resource.
func New(options Options) (*Simulator, error) {
	c := options.Config
	if c == nil {
		panic("simulator.New: Options.Config is required")
	}

	monitor := options.Monitor
	if monitor == nil {
		monitor = monitoring.New(c.Monitor)
	}

	if err := os.RemoveAll(c.TemporaryFolder); err != nil {
		return nil, errors.Wrapf(err, "failed to remove temporaryFolder '%s'", c.TemporaryFolder)
	}
	storage, err := runtime.NewTemporaryStorage(c.TemporaryFolder)
	if err != nil {
		return nil, err
	}
	env := &runtime.Environment{
		GarbageCollector: &gc.GarbageCollector{},
		TemporaryStorage: storage,
		Monitor:          monitor,
	}

	s := &Simulator{
		script:    c.Script,
		env:       env,
		monitor:   monitor.WithPrefix("simulator"),
		scheduler: options.Scheduler,
		holders:   make(map[string][]refcount.Release),
	}
	if s.scheduler == nil {
		s.ticker = scheduler.NewTicker(time.Duration(c.TickInterval) * time.Millisecond)
		s.scheduler = s.ticker
	}

	folder, err := storage.NewFolder()
	if err != nil {
		s.stopTicker()
		return nil, err
	}
	s.monitor.Infof("Created shared resource: %s", folder.Path())

	s.counter = refcount.New(folder, func(f runtime.TemporaryFolder) error {
		s.monitor.Infof("Removing shared resource: %s", f.Path())
		return f.Remove()
	}, refcount.Options{
		Lifetime:  c.Lifetime,
		Scheduler: s.scheduler,
		Monitor:   monitor,
		Tracker:   env.GarbageCollector,
		Strict:    c.Strict,
		Name:      "simulation",
	})
	return s, nil
}

// Counter returns the counter owning the shared resource.
func (s *Simulator) Counter() *refcount.Counter[runtime.TemporaryFolder] {
	return s.counter
}

// Run executes the script, returning early if ctx is done or a step fails.
//
// A wait step resumes only after the delayed releases due on its last tick
// have run, so the state logged after it is final for that tick.
func (s *Simulator) Run(ctx context.Context) error {
	for i, step := range s.script {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.step(ctx, step); err != nil {
			return errors.Wrapf(err, "script[%d] '%s' failed", i, step.Action)
		}
		s.monitor.WithTag("step", step.Action).Infof(
			"step %d done, state: %s, refCount: %d",
			i, s.counter.State(), s.counter.RefCount(),
		)
	}
	return nil
}

func (s *Simulator) step(ctx context.Context, step config.Step) error {
	switch step.Action {
	case config.ActionAcquire:
		folder, release, err := s.counter.Acquire()
		if err != nil {
			// Expected when a script acquires after dispose
			s.monitor.Warnf("holder '%s' could not acquire: %s", step.Holder, err)
			return nil
		}
		debug("holder '%s' acquired %s", step.Holder, folder.Path())
		s.holders[step.Holder] = append(s.holders[step.Holder], release)
	case config.ActionRelease:
		releases := s.holders[step.Holder]
		if len(releases) == 0 {
			return errors.Errorf("holder '%s' holds no reference", step.Holder)
		}
		release := releases[len(releases)-1]
		s.holders[step.Holder] = releases[:len(releases)-1]
		release()
	case config.ActionWait:
		for i := 0; i < step.Ticks; i++ {
			if err := s.scheduler.WaitTick(ctx); err != nil {
				return err
			}
		}
	case config.ActionDispose:
		return s.counter.Dispose()
	default:
		return errors.Errorf("unknown action '%s'", step.Action)
	}
	return nil
}

// Close disposes everything registered with the garbage collector and stops
// the ticker, if one was created by New().
func (s *Simulator) Close() error {
	outstanding := 0
	for _, releases := range s.holders {
		outstanding += len(releases)
	}
	if outstanding > 0 {
		s.monitor.Warnf("script ended with %d references outstanding", outstanding)
	}

	err := s.env.GarbageCollector.CollectAll()
	s.stopTicker()
	return err
}

func (s *Simulator) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
}
