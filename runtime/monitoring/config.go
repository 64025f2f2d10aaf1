package monitoring

import (
	"github.com/sirupsen/logrus"
	schematypes "github.com/taskcluster/go-schematypes"
	"github.com/taskcluster/refcounter/runtime"
	"github.com/taskcluster/refcounter/runtime/mocks"
)

var mockConfigSchema = schematypes.Object{
	Properties: schematypes.Properties{
		"type": schematypes.StringEnum{Options: []string{"mock"}},
		"panicOnError": schematypes.Boolean{
			MetaData: schematypes.MetaData{
				Title:       "Panic On Error",
				Description: "Use a mock implementation of the monitor that panics on errors.",
			},
		},
	},
	Required: []string{"type", "panicOnError"},
}

var loggingConfigSchema = schematypes.Object{
	Properties: schematypes.Properties{
		"logLevel": schematypes.StringEnum{
			Options: []string{
				logrus.DebugLevel.String(),
				logrus.InfoLevel.String(),
				logrus.WarnLevel.String(),
				logrus.ErrorLevel.String(),
				logrus.FatalLevel.String(),
				logrus.PanicLevel.String(),
			},
		},
		"tags": schematypes.Map{
			MetaData: schematypes.MetaData{
				Title:       "Tags",
				Description: "Tags that should be applied to all log entries",
			},
			Values: schematypes.String{},
		},
	},
	Required: []string{"logLevel"},
}

// ConfigSchema for configuration given to New()
var ConfigSchema schematypes.Schema = schematypes.OneOf{
	mockConfigSchema,
	loggingConfigSchema,
}

// PreConfig returns a default monitor for use before the configuration is
// loaded. This logs at the INFO level to stderr.
func PreConfig() runtime.Monitor {
	return NewLoggingMonitor("info", nil)
}

// New returns a runtime.Monitor from config matching ConfigSchema.
func New(config interface{}) runtime.Monitor {
	var c struct {
		LogLevel string            `json:"logLevel"`
		Tags     map[string]string `json:"tags"`
	}
	if schematypes.MustMap(loggingConfigSchema, config, &c) == nil {
		return NewLoggingMonitor(c.LogLevel, c.Tags)
	}

	var m struct {
		Type         string `json:"type"`
		PanicOnError bool   `json:"panicOnError"`
	}
	if schematypes.MustMap(mockConfigSchema, config, &m) == nil {
		return mocks.NewMockMonitor(m.PanicOnError)
	}

	panic("monitor config should have matched one of the options, validate config before calling New")
}
