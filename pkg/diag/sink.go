// Copyright 2025, the fabdeploy authors.  All rights reserved.

package diag

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fabdeploy/fabdeploy/pkg/util/logging"
)

// Sink facilitates pluggable diagnostics messages.
type Sink interface {
	// Count fetches the total number of diagnostics issued (errors plus warnings).
	Count() int
	// Errors fetches the number of errors issued.
	Errors() int
	// Warnings fetches the number of warnings issued.
	Warnings() int
	// Success returns true if this sink is currently error-free.
	Success() bool

	// Infof issues an informational message.
	Infof(msg string, args ...interface{})
	// Warningf issues a new warning diagnostic.
	Warningf(msg string, args ...interface{})
	// Errorf issues a new error diagnostic.
	Errorf(msg string, args ...interface{})
}

// Category dictates the kind of diagnostic.
type Category string

const (
	Error   Category = "error"
	Warning Category = "warning"
	Info    Category = "info"
)

// DefaultSink returns a default sink that simply logs output to stderr/stdout.
func DefaultSink() Sink {
	return newDefaultSink(os.Stderr, os.Stdout)
}

// TestSink returns a sink that writes to the given writers; handy for capturing output in tests.
func TestSink(errorW io.Writer, outW io.Writer) Sink {
	return newDefaultSink(errorW, outW)
}

func newDefaultSink(errorW io.Writer, outW io.Writer) *defaultSink {
	return &defaultSink{errorW: errorW, outW: outW}
}

// defaultSink is the default sink which logs output to stderr/stdout.
type defaultSink struct {
	mu       sync.Mutex
	errors   int       // the number of errors that have been issued.
	warnings int       // the number of warnings that have been issued.
	errorW   io.Writer // the output stream to use for errors.
	outW     io.Writer // the output stream to use for warnings and info.
}

func (d *defaultSink) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errors + d.warnings
}

func (d *defaultSink) Errors() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errors
}

func (d *defaultSink) Warnings() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.warnings
}

func (d *defaultSink) Success() bool {
	return d.Errors() == 0
}

func (d *defaultSink) Infof(msg string, args ...interface{}) {
	s := stringify(Info, msg, args...)
	logging.V(5).Infof("defaultSink::Info(%v)", s[:len(s)-1])
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.outW, s)
}

func (d *defaultSink) Warningf(msg string, args ...interface{}) {
	s := stringify(Warning, msg, args...)
	logging.V(4).Infof("defaultSink::Warning(%v)", s[:len(s)-1])
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.outW, s)
	d.warnings++
}

func (d *defaultSink) Errorf(msg string, args ...interface{}) {
	s := stringify(Error, msg, args...)
	logging.V(3).Infof("defaultSink::Error(%v)", s[:len(s)-1])
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.errorW, s)
	d.errors++
}

func stringify(cat Category, msg string, args ...interface{}) string {
	prefix := ""
	if cat != Info {
		prefix = string(cat) + ": "
	}
	return prefix + fmt.Sprintf(msg, args...) + "\n"
}
