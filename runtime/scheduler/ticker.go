package scheduler

import (
	"time"

	"github.com/taskcluster/refcounter/runtime/atomics"
)

// Ticker is a Scheduler that ticks on a fixed wall-clock interval until
// stopped. Timers registered with AfterFunc are called on the goroutine
// driving the Ticker, they never fire after Stop() has returned.
type Ticker struct {
	ManualScheduler
	stopped atomics.Barrier
	done    chan struct{}
}

// NewTicker returns a Ticker that ticks every interval, Stop() must be called
// to release the underlying time.Ticker.
func NewTicker(interval time.Duration) *Ticker {
	t := &Ticker{done: make(chan struct{})}
	go t.run(time.NewTicker(interval))
	return t
}

func (t *Ticker) run(ticker *time.Ticker) {
	defer close(t.done)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.Tick()
		case <-t.stopped.Barrier():
			return
		}
	}
}

// Stop the ticker, goroutines blocked in WaitTick stay blocked until their
// context is done. It is safe to call Stop more than once.
func (t *Ticker) Stop() {
	t.stopped.Fall()
	<-t.done
}
