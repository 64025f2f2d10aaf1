// Package monitoring provides implementations of runtime.Monitor.
//
// In addition to the logrus backed monitor this package provides a
// ConfigSchema and a New(config) method that instantiates one of the
// implementations depending on configuration, so the simulate command can
// switch to the mock monitor without knowing about it.
package monitoring
