// Copyright 2025, the fabdeploy authors.  All rights reserved.

package version

// Version is the repo's current version.  It is set by the linker via ldflags for release builds.
var Version = "0.0.0-dev"
