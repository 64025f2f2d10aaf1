package runtime

// A Monitor is responsible for collecting logs, counters and error reports.
//
// Lifecycle managers take a Monitor so that transitions and protocol
// violations end up in the system log, where they can be tracked down.
type Monitor interface {
	// Measure values, e.g. number of ticks waited before release
	Measure(name string, value ...float64)
	// Increment counters
	Count(name string, value float64)

	// Report error/warning and write to log, returns incidentId which can be
	// included in other log messages, if relevant.
	ReportError(err error, message ...interface{}) string
	ReportWarning(err error, message ...interface{}) string
	// CapturePanic recovers from panic in fn, reports it and returns an
	// incidentId, or returns empty string if fn didn't panic.
	CapturePanic(fn func()) (incidentID string)

	// Write log messages to system log
	Debug(...interface{})
	Debugf(string, ...interface{})
	Info(...interface{})
	Infof(string, ...interface{})
	Warn(...interface{})
	Warnf(string, ...interface{})
	Error(...interface{})
	Errorf(string, ...interface{})

	// Create child monitor with given tags
	WithTags(tags map[string]string) Monitor
	WithTag(key, value string) Monitor
	// Create child monitor with given prefix (prefix applies to everything)
	WithPrefix(prefix string) Monitor
}
