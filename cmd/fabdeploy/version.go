// Copyright 2025, the fabdeploy authors.  All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fabdeploy/fabdeploy/pkg/util/cmdutil"
	"github.com/fabdeploy/fabdeploy/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print fabdeploy's version number",
		Args:  cobra.NoArgs,
		Run: cmdutil.RunFunc(func(cmd *cobra.Command, args []string) error {
			fmt.Printf("fabdeploy version %v\n", version.Version)
			return nil
		}),
	}
}
