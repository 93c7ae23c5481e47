// Package monitoring routes diagnostics from the tracker, filter and
// collision detector. The desktop shell logs through the standard logger;
// tests swap in their own sink.
package monitoring

import "log"

// Printf matches log.Printf.
type Printf func(format string, v ...interface{})

func discard(string, ...interface{}) {}

// Logf receives track resets, dropped samples and rejected crossings.
var Logf Printf = log.Printf

// SetLogger points Logf at f. A nil f silences the core.
func SetLogger(f Printf) {
	if f == nil {
		f = discard
	}
	Logf = f
}
