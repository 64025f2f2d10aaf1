package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// A TransformationProvider provides a method Transform(config) that knows
// how to transform the configuration object. Typically, by replacing objects
// matching a specific pattern or overwriting specific values.
type TransformationProvider interface {
	Transform(config map[string]interface{}) error
}

var (
	providers  = make(map[string]TransformationProvider)
	mProviders = sync.Mutex{}
)

// Register will register a TransformationProvider. This is intended to be
// called at static initialization time (in func init()), and will thus panic
// if the given name already is in use.
func Register(name string, provider TransformationProvider) {
	mProviders.Lock()
	defer mProviders.Unlock()

	if _, ok := providers[name]; ok {
		panic(fmt.Sprintf("config.Provider name '%s' is already in use!", name))
	}
	providers[name] = provider
}

// Providers returns a map of the registered TransformationProvider.
func Providers() map[string]TransformationProvider {
	mProviders.Lock()
	defer mProviders.Unlock()

	m := map[string]TransformationProvider{}
	for name, provider := range providers {
		m[name] = provider
	}
	return m
}

// Transforms returns the sorted names of registered transformations.
func Transforms() []string {
	var names []string
	for name := range Providers() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// applyTransforms runs the named transformations on config in order.
func applyTransforms(names []string, config map[string]interface{}) error {
	providers := Providers()
	for _, name := range names {
		provider, ok := providers[name]
		if !ok {
			return errors.Errorf("unknown config transformation: '%s'", name)
		}
		debug("applying config transformation: '%s'", name)
		if err := provider.Transform(config); err != nil {
			return errors.Wrapf(err, "config transformation '%s' failed", name)
		}
	}
	return nil
}
