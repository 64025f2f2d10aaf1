// Package simulate provides a command that runs a scripted sequence of
// acquire, release, wait and dispose steps against a reference counted
// temporary folder, logging every transition.
package simulate

import (
	"context"
	"fmt"
	"os"

	"github.com/taskcluster/refcounter/commands"
	"github.com/taskcluster/refcounter/config"
	"github.com/taskcluster/refcounter/runtime"
	"github.com/taskcluster/refcounter/runtime/monitoring"
	"github.com/taskcluster/refcounter/simulator"
)

func init() {
	commands.Register("simulate", cmd{})
}

type cmd struct{}

func (cmd) Summary() string {
	return "Run a simulation script from a config file."
}

func (cmd) Usage() string {
	return `
refcounter simulate runs the script from the configuration file against a
reference counted temporary folder. The counter and the folder are disposed
when the script is done, or the process is interrupted.

usage: refcounter simulate <config.yml>
`
}

func (cmd) Execute(args map[string]interface{}) bool {
	monitor := monitoring.PreConfig()

	c, err := config.LoadFromFile(args["<config.yml>"].(string))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return false
	}

	s, err := simulator.New(simulator.Options{Config: c})
	if err != nil {
		monitor.Error("Failed to create simulator, error: ", err)
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sm := runtime.NewLocalShutdownManager()
	defer sm.Stop()
	go func() {
		select {
		case <-sm.WaitForShutdown():
			monitor.Warn("Interrupted, stopping simulation")
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := s.Run(ctx)
	if runErr != nil {
		monitor.Error("Simulation failed, error: ", runErr)
	}
	if err := s.Close(); err != nil {
		monitor.Error("Failed to dispose resources, error: ", err)
		return false
	}
	return runErr == nil
}
