package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelfleet/fleetctl/pkg/config"
	"github.com/modelfleet/fleetctl/pkg/hfhub"
	"github.com/modelfleet/fleetctl/pkg/modelstager"
	"github.com/modelfleet/fleetctl/pkg/modelstore"
)

func newStageCommand() *cobra.Command {
	var hfToken string
	var stageConcurrency int
	var only string

	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Stage declared groups' model weights into the model store without applying any Kubernetes objects",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := context.Background()

			doc, err := config.Load(configPath)
			if err != nil {
				return err
			}

			store, err := modelstore.New(ctx, modelstore.Config{Bucket: resolvedBucket(), Region: doc.AWS.Cluster.Region}, logger)
			if err != nil {
				return err
			}

			stager := modelstager.New(store, hfhub.NewClient("", hfToken), stageConcurrency, logger)
			out := cmd.OutOrStdout()

			for _, g := range doc.AWS.ModelGroups {
				if g.Model == nil || (only != "" && only != g.Name) {
					continue
				}
				skipped, err := stager.Stage(ctx, g.Name, g.Model)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: skipped=%v\n", g.Name, skipped)
			}
			for _, g := range doc.AWS.MixedModelGroups {
				if g.Model == nil || (only != "" && only != g.Name) {
					continue
				}
				skipped, err := stager.Stage(ctx, g.Name, g.Model)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: skipped=%v\n", g.Name, skipped)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hfToken, "hf-token", "", "HuggingFace Hub access token for gated/private repos")
	cmd.Flags().IntVar(&stageConcurrency, "stage-concurrency", 0, "concurrent file transfers per staged group (0 selects the default)")
	cmd.Flags().StringVar(&only, "only", "", "stage only the named group")
	return cmd
}
