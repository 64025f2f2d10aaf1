package runtime

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

var (
	debugLock        sync.Mutex
	debugOut         io.Writer = os.Stderr
	prevDebugMessage           = time.Now()
)

// debugPattern matches names enabled by the DEBUG environment variable,
// DEBUG is a comma separated list of names where '*' is a wildcard.
var debugPattern = compileDebugPattern(os.Getenv("DEBUG"))

func compileDebugPattern(debug string) *regexp.Regexp {
	if debug == "" {
		return nil
	}
	debug = regexp.QuoteMeta(debug)
	debug = strings.Replace(debug, "\\*", ".*?", -1)
	debug = strings.Replace(debug, ",", "|", -1)
	return regexp.MustCompile("^(" + debug + ")$")
}

func debugDisabled(string, ...interface{}) {}

// Debug will return a debug(format, arg, arg...) function for which messages
// will be printed if the DEBUG environment variable matches name.
//
// This is useful for development debugging only. Do not use this for messages
// that has any value in production, use a runtime.Monitor for those.
func Debug(name string) func(string, ...interface{}) {
	if debugPattern == nil || !debugPattern.MatchString(name) {
		return debugDisabled
	}

	return func(format string, args ...interface{}) {
		debugLock.Lock()
		defer debugLock.Unlock()

		now := time.Now()
		delay := now.Sub(prevDebugMessage)
		prevDebugMessage = now

		fmt.Fprintf(debugOut, " +%-8s %s | %s\n",
			delay.Round(time.Microsecond), name, fmt.Sprintf(format, args...),
		)
	}
}
