// Package configenv implements a TransformationProvider that replaces objects
// on the form: {$env: "VAR"} with the value of the environment variable VAR.
//
// An optional 'type' property on the object may be set to 'number' or 'bool'
// to parse the value, as lifetime and tickInterval must be integers.
package configenv

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/taskcluster/refcounter/config"
)

type provider struct{}

func init() {
	config.Register("env", provider{})
}

func (provider) Transform(cfg map[string]interface{}) error {
	return config.ReplaceObjects(cfg, "env", func(val map[string]interface{}) (interface{}, error) {
		name := val["$env"].(string)
		value := os.Getenv(name)
		switch val["type"] {
		case "number":
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "environment variable '%s' is not a number", name)
			}
			return n, nil
		case "bool":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, errors.Wrapf(err, "environment variable '%s' is not a boolean", name)
			}
			return b, nil
		case nil, "string":
			return value, nil
		default:
			return nil, errors.Errorf("unsupported type '%v' for environment variable '%s'", val["type"], name)
		}
	})
}
