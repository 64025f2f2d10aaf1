// Package schema provides a command that prints the configuration file schema.
package schema

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/taskcluster/refcounter/commands"
	"github.com/taskcluster/refcounter/config"
)

func init() {
	commands.Register("schema", cmd{})
}

type cmd struct{}

func (cmd) Summary() string {
	return "Dump schema for the configuration file"
}

func (cmd) Usage() string {
	return `
refcounter schema can be used to export the JSON schema document for the
configuration file.

usage: refcounter schema [options]

options:
  -f --format <format>          Set the format json or yaml [default: json].
  -o --output <file>            Write output to a file [default: -].
`
}

func (cmd) Execute(args map[string]interface{}) bool {
	data, err := render(args["--format"].(string))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return false
	}

	output := args["--output"].(string)
	if output == "-" {
		fmt.Println(string(data))
		return true
	}
	if err = ioutil.WriteFile(output, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write file: '%s', error: %s\n", output, err)
		return false
	}
	return true
}

func render(format string) ([]byte, error) {
	schema := config.Schema().Schema()
	switch format {
	case "yaml":
		return yaml.Marshal(schema)
	case "json":
		return json.MarshalIndent(schema, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported format: '%s'", format)
	}
}
