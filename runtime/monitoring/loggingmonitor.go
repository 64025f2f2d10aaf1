package monitoring

import (
	"fmt"
	"io/ioutil"
	godebug "runtime/debug"
	"strings"

	"github.com/pborman/uuid"
	"github.com/sirupsen/logrus"
	"github.com/taskcluster/refcounter/runtime"
)

type loggingMonitor struct {
	*logrus.Entry
	prefix string
}

// NewLoggingMonitor creates a monitor that writes everything to the log,
// measures and counters are written as debug messages.
func NewLoggingMonitor(logLevel string, tags map[string]string) runtime.Monitor {
	lvl, err := logrus.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		panic(fmt.Sprintf("Unsupported log-level: %s", logLevel))
	}
	logger := logrus.New()
	logger.Level = lvl

	return newLoggingMonitor(logger, tags)
}

// NewDiscardMonitor creates a monitor that drops everything, useful as
// default when no monitor is given.
func NewDiscardMonitor() runtime.Monitor {
	logger := logrus.New()
	logger.Out = ioutil.Discard
	logger.Level = logrus.PanicLevel
	return newLoggingMonitor(logger, nil)
}

func newLoggingMonitor(logger *logrus.Logger, tags map[string]string) *loggingMonitor {
	// Convert tags to logrus.Fields
	fields := make(logrus.Fields, len(tags))
	for k, v := range tags {
		fields[k] = v
	}

	return &loggingMonitor{
		Entry: logrus.NewEntry(logger).WithFields(fields),
	}
}

func (m *loggingMonitor) Measure(name string, value ...float64) {
	strs := make([]string, 0, len(value))
	for _, v := range value {
		strs = append(strs, fmt.Sprintf("%f", v))
	}
	m.Debugf("measure: %s%s recorded %s", m.prefix, name, strings.Join(strs, ","))
}

func (m *loggingMonitor) Count(name string, value float64) {
	m.Debugf("counter: %s%s incremented by %f", m.prefix, name, value)
}

func (m *loggingMonitor) CapturePanic(fn func()) (incidentID string) {
	defer func() {
		if crash := recover(); crash != nil {
			message := fmt.Sprint(crash)
			incidentID = uuid.NewRandom().String()
			trace := godebug.Stack()
			m.Entry.WithField("incidentId", incidentID).WithField("panic", crash).Error(
				"Recovered from panic: ", message, "\nAt:\n", string(trace),
			)
		}
	}()
	fn()
	return
}

func (m *loggingMonitor) ReportError(err error, message ...interface{}) string {
	incidentID := uuid.NewRandom().String()
	m.Entry.WithField("incidentId", incidentID).WithError(err).Error(message...)
	return incidentID
}

func (m *loggingMonitor) ReportWarning(err error, message ...interface{}) string {
	incidentID := uuid.NewRandom().String()
	m.Entry.WithField("incidentId", incidentID).WithError(err).Warn(message...)
	return incidentID
}

func (m *loggingMonitor) WithTags(tags map[string]string) runtime.Monitor {
	fields := make(logrus.Fields, len(tags))
	for k, v := range tags {
		fields[k] = v
	}
	fields["prefix"] = strings.TrimSuffix(m.prefix, ".") // don't allow overwrite "prefix"
	return &loggingMonitor{
		Entry:  m.Entry.WithFields(fields),
		prefix: m.prefix,
	}
}

func (m *loggingMonitor) WithTag(key, value string) runtime.Monitor {
	return m.WithTags(map[string]string{key: value})
}

func (m *loggingMonitor) WithPrefix(prefix string) runtime.Monitor {
	prefix = m.prefix + prefix
	return &loggingMonitor{
		Entry:  m.Entry.WithField("prefix", prefix),
		prefix: prefix + ".",
	}
}
