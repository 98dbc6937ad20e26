package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelfleet/fleetctl/pkg/config"
	"github.com/modelfleet/fleetctl/pkg/instancecatalog"
	"github.com/modelfleet/fleetctl/pkg/modelstore"
	"github.com/modelfleet/fleetctl/pkg/runtimeplanner"
	"github.com/modelfleet/fleetctl/pkg/workload"
)

func newPlanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the resolved launch plan for every declared group without touching the cluster",
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

			out := cmd.OutOrStdout()
			for _, g := range doc.AWS.ModelGroups {
				entry, ok := instancecatalog.Lookup(g.NodeType)
				if !ok {
					fmt.Fprintf(out, "%s: %v\n", g.Name, instancecatalog.Err(g.NodeType))
					continue
				}
				_, _, gpuCount := entry.Available()
				spec := runtimeplanner.FromModelGroup(g, gpuCount)
				plan, err := runtimeplanner.NewPlanner(runtimeplanner.Classify(g.Runtime.Image)).Plan(ctx, spec, workload.DefaultContainerPort(), store)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", g.Name, err)
					continue
				}
				fmt.Fprintf(out, "%s: argv=%v env=%v\n", g.Name, plan.Argv, plan.Env)
			}
			for _, g := range doc.AWS.MixedModelGroups {
				entry, ok := instancecatalog.Lookup(g.NodeType)
				if !ok {
					fmt.Fprintf(out, "%s: %v\n", g.Name, instancecatalog.Err(g.NodeType))
					continue
				}
				_, _, gpuCount := entry.Available()
				spec := runtimeplanner.FromMixedModelGroup(g, gpuCount)
				plan, err := runtimeplanner.NewPlanner(runtimeplanner.Classify(g.Runtime.Image)).Plan(ctx, spec, workload.DefaultContainerPort(), store)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", g.Name, err)
					continue
				}
				fmt.Fprintf(out, "%s: argv=%v env=%v\n", g.Name, plan.Argv, plan.Env)
			}
			return nil
		},
	}
}
