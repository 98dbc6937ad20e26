package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelfleet/fleetctl/pkg/config"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration document without touching the cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d model group(s), %d mixed-capacity group(s)\n",
				len(doc.AWS.ModelGroups), len(doc.AWS.MixedModelGroups))
			return nil
		},
	}
}
