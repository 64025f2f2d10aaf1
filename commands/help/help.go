// Package help provides the help command.
package help

import (
	"fmt"
	"os"

	"github.com/taskcluster/refcounter/commands"
)

func init() {
	commands.Register("help", cmd{})
}

type cmd struct{}

func (cmd) Summary() string {
	return "Prints help for a command."
}

func (cmd) Usage() string {
	return "usage: refcounter help [<command>]"
}

func (cmd) Execute(arguments map[string]interface{}) bool {
	command, ok := arguments["<command>"].(string)
	if !ok {
		fmt.Print(commands.Usage())
		return true
	}
	provider := commands.Lookup(command)
	if provider == nil {
		fmt.Fprintln(os.Stderr, "Unknown command: ", command)
		return false
	}
	fmt.Print(provider.Usage())
	return true
}
