package version

import (
	"encoding/json"
	"fmt"

	"github.com/taskcluster/refcounter/commands"
)

func init() {
	commands.Register("version", cmd{})
}

type cmd struct{}

func (cmd) Summary() string {
	return "Display version information"
}

func (cmd) Usage() string {
	return `
refcounter version will display version information.

usage: refcounter version [options] [semver|revision]

options:
  -j --json     Print as JSON.
  -h --help     Show this screen.
`
}

func (cmd) Execute(arguments map[string]interface{}) bool {
	result := info(arguments["semver"].(bool), arguments["revision"].(bool))

	if arguments["--json"].(bool) {
		data, _ := json.Marshal(result)
		fmt.Println(string(data))
		return true
	}
	if v, ok := result["version"]; ok {
		fmt.Printf("version:  %s\n", v)
	}
	if r, ok := result["revision"]; ok {
		fmt.Printf("revision: %s\n", r)
	}
	return true
}

// info returns the requested fields, "unknown" for values not injected
func info(semver, rev bool) map[string]string {
	orUnknown := func(s string) string {
		if s == "" {
			return "unknown"
		}
		return s
	}
	switch {
	case semver:
		return map[string]string{"version": orUnknown(Version())}
	case rev:
		return map[string]string{"revision": orUnknown(Revision())}
	default:
		return map[string]string{
			"version":  orUnknown(Version()),
			"revision": orUnknown(Revision()),
		}
	}
}
