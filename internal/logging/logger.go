// Package logging provides the package-level injectable logger used
// across the engine, matching internal/monitoring's shape in the
// teacher repo: a plain log.Printf-compatible var that callers and
// tests can redirect or silence.
package logging

import "log"

// Logf is the diagnostic logger used by jobrunner, store, and grouping.
// It defaults to log.Printf.
var Logf func(format string, args ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger, useful for quiet test runs.
func SetLogger(f func(format string, args ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
