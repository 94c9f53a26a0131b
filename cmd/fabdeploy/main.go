// Copyright 2025, the fabdeploy authors.  All rights reserved.

package main

import (
	"os"

	"github.com/fabdeploy/fabdeploy/pkg/util/cmdutil"
	"github.com/fabdeploy/fabdeploy/pkg/util/logging"
)

func main() {
	if err := NewFabdeployCmd().Execute(); err != nil {
		cmdutil.Exit(err)
	}
	logging.Flush()
	os.Exit(0)
}
