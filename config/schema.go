package config

import (
	"math"

	schematypes "github.com/taskcluster/go-schematypes"
	"github.com/taskcluster/refcounter/runtime/monitoring"
)

// Script actions
const (
	ActionAcquire = "acquire"
	ActionRelease = "release"
	ActionWait    = "wait"
	ActionDispose = "dispose"
)

var stepSchema = schematypes.Object{
	MetaData: schematypes.MetaData{
		Title: "Script Step",
		Description: markdown(`
			A single step in a simulation script. 'acquire' and 'release' take
			a reference on behalf of 'holder', 'wait' sleeps for 'ticks' ticks
			and 'dispose' disposes the counter immediately.
		`),
	},
	Properties: schematypes.Properties{
		"action": schematypes.StringEnum{
			Options: []string{ActionAcquire, ActionRelease, ActionWait, ActionDispose},
		},
		"holder": schematypes.String{
			MetaData: schematypes.MetaData{
				Title:       "Holder",
				Description: "Name of the party holding the reference.",
			},
			Pattern: `^[a-zA-Z0-9_-]{1,64}$`,
		},
		"ticks": schematypes.Integer{
			MetaData: schematypes.MetaData{
				Title:       "Ticks",
				Description: "Number of ticks to wait.",
			},
			Minimum: 1,
			Maximum: 10000,
		},
	},
	Required: []string{"action"},
}

var configSchema = schematypes.Object{
	MetaData: schematypes.MetaData{
		Title:       "Refcounter Config",
		Description: "Configuration for the reference counter and its environment.",
	},
	Properties: schematypes.Properties{
		"lifetime": schematypes.Integer{
			MetaData: schematypes.MetaData{
				Title: "Lifetime",
				Description: markdown(`
					Number of ticks a resource is kept alive after the last
					reference is released. 0 and 1 both mean the resource is
					disposed on the next tick.
				`),
			},
			Minimum: 0,
			Maximum: math.MaxInt32,
		},
		"tickInterval": schematypes.Integer{
			MetaData: schematypes.MetaData{
				Title:       "Tick Interval",
				Description: "Milliseconds between ticks.",
			},
			Minimum: 1,
			Maximum: 24 * 60 * 60 * 1000,
		},
		"strict": schematypes.Boolean{
			MetaData: schematypes.MetaData{
				Title: "Strict",
				Description: markdown(`
					Panic on unbalanced releases instead of reporting them.
					Useful during development.
				`),
			},
		},
		"temporaryFolder": schematypes.String{
			MetaData: schematypes.MetaData{
				Title:       "Temporary Folder",
				Description: "Folder in which temporary folders are created, this is wiped on start.",
			},
		},
		"monitor": monitoring.ConfigSchema,
		"script": schematypes.Array{
			MetaData: schematypes.MetaData{
				Title:       "Script",
				Description: "Steps executed by the 'simulate' command.",
			},
			Items: stepSchema,
		},
	},
	Required: []string{
		"lifetime",
		"tickInterval",
		"temporaryFolder",
		"monitor",
	},
}

// Schema returns the configuration file schema
func Schema() schematypes.Object {
	return schematypes.Object{
		MetaData: schematypes.MetaData{
			Title:       "Configuration File",
			Description: "Initial configuration and transformations to run.",
		},
		Properties: schematypes.Properties{
			"transforms": schematypes.Array{
				MetaData: schematypes.MetaData{
					Title:       "Configuration Transformations",
					Description: "Ordered list of transformations to run on the config.",
				},
				Items: schematypes.StringEnum{
					Options: Transforms(),
				},
			},
			"config": configSchema,
		},
		Required: []string{"config"},
	}
}
