// Copyright 2025, the fabdeploy authors.  All rights reserved.

package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fabdeploy/fabdeploy/pkg/engine"
	"github.com/fabdeploy/fabdeploy/pkg/util/cmdutil"
)

func newDeployCmd() *cobra.Command {
	var dryRun bool
	var full bool
	var only []string
	var retryAttempts int

	cmd := &cobra.Command{
		Use:   "deploy <environment>",
		Short: "Deploy changed artifacts to an environment",
		Long: "Deploy changed artifacts to an environment.\n" +
			"\n" +
			"By default only the artifacts that changed since the environment's last\n" +
			"successful deployment are deployed, expanded to anything that derives from\n" +
			"them.  Use --full to deploy everything, or --only to deploy a named subset.",
		Args: cobra.ExactArgs(1),
		Run: cmdutil.RunFunc(func(cmd *cobra.Command, args []string) error {
			if full && len(only) > 0 {
				return errors.New("--full and --only are mutually exclusive")
			}
			summary, err := engine.Deploy(context.Background(), args[0], engine.Options{
				ConfigDir:     configDir,
				ArtifactsDir:  artifactsDir,
				DryRun:        dryRun,
				Full:          full,
				Only:          only,
				RetryAttempts: retryAttempts,
				Sink:          cmdutil.Diag(),
			})
			if err != nil {
				return err
			}
			if summary.Errored > 0 {
				return errors.Errorf("%d artifacts failed to deploy", summary.Errored)
			}
			return nil
		}),
	}

	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false,
		"Simulate the deployment without making changes")
	cmd.PersistentFlags().BoolVar(&full, "full", false,
		"Deploy all artifacts, bypassing change detection")
	cmd.PersistentFlags().StringSliceVar(&only, "only", nil,
		"Deploy only the named artifacts (bypasses change detection)")
	cmd.PersistentFlags().IntVar(&retryAttempts, "retries", 0,
		"Maximum retries per remote call on transient failures (0 for the default)")
	return cmd
}
