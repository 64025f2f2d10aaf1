// Package config provides configuration loading logic.
//
// The configuration file is a YAML document on the form:
//   transforms:
//     - env
//     - abs
//   config:
//     lifetime: 2
//     tickInterval: 100
//     ...
//
// Transformations listed under 'transforms' are applied in order to the
// 'config' object before it is validated against Schema(). Each
// transformation is implemented by a sub-package registering a
// TransformationProvider, see configenv and configabs.
package config

import "github.com/taskcluster/refcounter/runtime"

var debug = runtime.Debug("config")
