package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelfleet/fleetctl/pkg/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print fleetctl's version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "gitVersion=%s, gitCommit=%s\n", version.GitVersion, version.GitCommit)
			return nil
		},
	}
}
