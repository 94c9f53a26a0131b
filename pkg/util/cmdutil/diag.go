// Copyright 2025, the fabdeploy authors.  All rights reserved.

package cmdutil

import (
	"github.com/fabdeploy/fabdeploy/pkg/diag"
)

var snk diag.Sink

// Diag lazily allocates a sink to be used if we can't create one from the command's options.
func Diag() diag.Sink {
	if snk == nil {
		snk = diag.DefaultSink()
	}
	return snk
}
