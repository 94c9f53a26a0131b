// Copyright 2025, the fabdeploy authors.  All rights reserved.

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fabdeploy/fabdeploy/pkg/engine"
	"github.com/fabdeploy/fabdeploy/pkg/util/cmdutil"
)

func newPreviewCmd() *cobra.Command {
	var full bool
	var only []string

	cmd := &cobra.Command{
		Use:   "preview <environment>",
		Short: "Show what a deployment to an environment would do",
		Long: "Show what a deployment to an environment would do.\n" +
			"\n" +
			"Runs the full pipeline, including existence checks against the workspace,\n" +
			"but suppresses every create and update.  The decisions shown are exactly the\n" +
			"decisions a real deployment would make.",
		Args: cobra.ExactArgs(1),
		Run: cmdutil.RunFunc(func(cmd *cobra.Command, args []string) error {
			_, err := engine.Preview(context.Background(), args[0], engine.Options{
				ConfigDir:    configDir,
				ArtifactsDir: artifactsDir,
				Full:         full,
				Only:         only,
				Sink:         cmdutil.Diag(),
			})
			return err
		}),
	}

	cmd.PersistentFlags().BoolVar(&full, "full", false,
		"Preview all artifacts, bypassing change detection")
	cmd.PersistentFlags().StringSliceVar(&only, "only", nil,
		"Preview only the named artifacts (bypasses change detection)")
	return cmd
}
