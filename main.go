// Package main hosts the main function for refcounter.
package main

import (
	"github.com/taskcluster/refcounter/commands"

	_ "github.com/taskcluster/refcounter/commands/help"
	_ "github.com/taskcluster/refcounter/commands/schema"
	_ "github.com/taskcluster/refcounter/commands/simulate"
	_ "github.com/taskcluster/refcounter/commands/version"
	_ "github.com/taskcluster/refcounter/config/abs"
	_ "github.com/taskcluster/refcounter/config/env"
)

func main() {
	commands.Run(nil)
}
