// Package configabs implements a TransformationProvider that replaces objects
// on the form: {$abs: "path"} with the absolute path of path relative to the
// current working folder.
package configabs

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/taskcluster/refcounter/config"
)

type provider struct{}

func init() {
	config.Register("abs", provider{})
}

func (provider) Transform(cfg map[string]interface{}) error {
	return config.ReplaceObjects(cfg, "abs", func(val map[string]interface{}) (interface{}, error) {
		p := val["$abs"].(string)
		result, err := filepath.Abs(filepath.FromSlash(p))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to resolve absolute path for '%s'", p)
		}
		return result, nil
	})
}
