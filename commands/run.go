// Package commands exposes a run method for main() to call
package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/docopt/docopt-go"
)

// Usage returns the top-level usage string listing all registered commands.
func Usage() string {
	usage := "usage: refcounter <command> [<args>...]\n"
	usage += "\n"
	usage += "Commands available:\n"
	names := names()
	maxNameLength := 0
	for _, name := range names {
		if len(name) > maxNameLength {
			maxNameLength = len(name)
		}
	}
	for _, name := range names {
		usage += "\n    " + pad(name, maxNameLength) + " " + Lookup(name).Summary()
	}
	usage += "\n"
	return usage
}

// Run will parse command line arguments and run available commands.
func Run(argv []string) {
	usage := Usage()

	// Parse arguments
	arguments, _ := docopt.Parse(usage, argv, true, "refcounter", true)
	cmd := arguments["<command>"].(string)

	// Find command provider
	provider := Lookup(cmd)
	if provider == nil {
		fmt.Fprintln(os.Stderr, "Unknown command: ", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	// Parse args for command provider
	subArguments, _ := docopt.Parse(
		provider.Usage(), append([]string{cmd}, arguments["<args>"].([]string)...),
		true, "refcounter", false,
	)
	if !provider.Execute(subArguments) {
		os.Exit(1)
	}
}

func pad(s string, length int) string {
	p := length - len(s)
	if p < 0 {
		p = 0
	}
	return s + strings.Repeat(" ", p)
}
