// Copyright 2025, the fabdeploy authors.  All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/fabdeploy/fabdeploy/pkg/util/logging"
)

// flags shared by every subcommand.
var (
	logFlow     bool
	logToStderr bool
	verbose     int

	configDir    string
	artifactsDir string
)

// NewFabdeployCmd creates the top-level command and wires up its children.
func NewFabdeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fabdeploy",
		Short: "fabdeploy deploys workspace artifacts to an environment",
		Long: "fabdeploy deploys workspace artifacts to an environment.\n" +
			"\n" +
			"It discovers artifact definitions in the source tree, orders them by their\n" +
			"dependencies, detects what changed since the last successful deployment, and\n" +
			"creates or updates each artifact in the target workspace.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.InitLogging(logToStderr, verbose, logFlow)
		},
	}

	cmd.PersistentFlags().BoolVar(&logFlow, "logflow", false,
		"Flow log settings to child processes (like plugins)")
	cmd.PersistentFlags().BoolVar(&logToStderr, "logtostderr", false,
		"Log to stderr instead of to files")
	cmd.PersistentFlags().IntVarP(&verbose, "verbose", "v", 0,
		"Enable verbose logging (e.g., v=3); anything >3 is very verbose")
	cmd.PersistentFlags().StringVar(&configDir, "config-dir", "config",
		"The directory containing per-environment configuration files")
	cmd.PersistentFlags().StringVar(&artifactsDir, "artifacts-dir", ".",
		"The repository directory containing the artifacts root")

	cmd.AddCommand(newDeployCmd())
	cmd.AddCommand(newPreviewCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}
