// Copyright 2025, the fabdeploy authors.  All rights reserved.

// Wrapper around the glog API that allows us to intercept all logging calls and manipulate them as
// necessary.  This is primarily used to ensure glog is initialized exactly once, with settings that
// are consistent across the whole process.
package logging

import (
	"flag"
	"strconv"
	"sync"

	"github.com/golang/glog"
)

var (
	LogToStderr = false // true if logging is being redirected to stderr.
	Verbose     = 0     // >0 if verbose logging is enabled at a particular level.
	LogFlow     = false // true to flow logging settings to child processes.
)

var rwLock sync.RWMutex

// VerboseLogger logs messages only if verbosity matches the level it was built with.
type VerboseLogger glog.Verbose

// Infof logs an INFO message, if the verbosity level matched the level this logger was built with.
func (vl VerboseLogger) Infof(format string, args ...interface{}) {
	rwLock.RLock()
	defer rwLock.RUnlock()
	glog.Verbose(vl).Infof(format, args...)
}

// V builds a logger that logs messages only if the given verbosity level is enabled.
func V(level glog.Level) VerboseLogger {
	rwLock.RLock()
	defer rwLock.RUnlock()
	return VerboseLogger(glog.V(level))
}

// Infof logs an INFO message unconditionally.
func Infof(format string, args ...interface{}) {
	rwLock.RLock()
	defer rwLock.RUnlock()
	glog.Infof(format, args...)
}

// Warningf logs a WARNING message unconditionally.
func Warningf(format string, args ...interface{}) {
	rwLock.RLock()
	defer rwLock.RUnlock()
	glog.Warningf(format, args...)
}

// Errorf logs an ERROR message unconditionally.
func Errorf(format string, args ...interface{}) {
	rwLock.RLock()
	defer rwLock.RUnlock()
	glog.Errorf(format, args...)
}

// Flush flushes all pending log I/O.
func Flush() {
	glog.Flush()
}

// InitLogging ensures the glog library has been initialized with the given settings.
func InitLogging(logToStderr bool, verbose int, logFlow bool) {
	// Remember the settings in case someone inquires.
	LogToStderr = logToStderr
	Verbose = verbose
	LogFlow = logFlow

	// Ensure the flag package has been parsed, since glog reads its settings from there.  Poking
	// around at flags by name feels kind of hacky, however it's how the glog library works.
	rwLock.Lock()
	defer rwLock.Unlock()
	if !flag.Parsed() {
		flag.Parse()
	}
	if logToStderr {
		maybeSetFlag("logtostderr", "true")
	}
	if verbose > 0 {
		maybeSetFlag("v", strconv.Itoa(verbose))
	}
}

func maybeSetFlag(name, value string) {
	if f := flag.Lookup(name); f != nil {
		f.Value.Set(value)
	}
}
