// Copyright 2025, the fabdeploy authors.  All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/fabdeploy/fabdeploy/pkg/engine"
	"github.com/fabdeploy/fabdeploy/pkg/util/cmdutil"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <environment>",
		Short: "Validate configuration and artifact definitions without deploying",
		Long: "Validate configuration and artifact definitions without deploying.\n" +
			"\n" +
			"Loads the environment's configuration, discovers the artifact tree, checks\n" +
			"the dependency graph for unknown references and cycles, and verifies every\n" +
			"definition is loadable.  The platform is never contacted.",
		Args: cobra.ExactArgs(1),
		Run: cmdutil.RunFunc(func(cmd *cobra.Command, args []string) error {
			return engine.Validate(args[0], engine.Options{
				ConfigDir:    configDir,
				ArtifactsDir: artifactsDir,
				Sink:         cmdutil.Diag(),
			})
		}),
	}
}
