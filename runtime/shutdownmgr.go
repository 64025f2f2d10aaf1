package runtime

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/taskcluster/refcounter/runtime/atomics"
)

// ShutdownManager implements a method for listening for shutdown events.
type ShutdownManager interface {
	WaitForShutdown() <-chan struct{}
}

// LocalShutdownManager is a ShutdownManager that triggers shutdown on
// SIGINT or SIGTERM, or when Shutdown() is called.
type LocalShutdownManager struct {
	shutdown atomics.Barrier
	signals  chan os.Signal
	stopped  atomics.Barrier
}

// NewLocalShutdownManager returns a LocalShutdownManager listening for
// signals, Stop() must be called to stop listening.
func NewLocalShutdownManager() *LocalShutdownManager {
	m := &LocalShutdownManager{signals: make(chan os.Signal, 1)}
	signal.Notify(m.signals, os.Interrupt, syscall.SIGTERM)
	go m.listen()
	return m
}

func (m *LocalShutdownManager) listen() {
	select {
	case sig := <-m.signals:
		debug("received signal: %s", sig)
		m.shutdown.Fall()
	case <-m.stopped.Barrier():
	}
}

// WaitForShutdown returns a channel that is closed when shutdown is triggered.
func (m *LocalShutdownManager) WaitForShutdown() <-chan struct{} {
	return m.shutdown.Barrier()
}

// Shutdown triggers shutdown, as if a signal had been received.
func (m *LocalShutdownManager) Shutdown() {
	m.shutdown.Fall()
}

// Stop listening for signals. It is safe to call Stop more than once.
func (m *LocalShutdownManager) Stop() {
	if m.stopped.Fall() {
		signal.Stop(m.signals)
	}
}
