package main

import (
	"context"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/modelfleet/fleetctl/pkg/clusterctx"
	"github.com/modelfleet/fleetctl/pkg/config"
	"github.com/modelfleet/fleetctl/pkg/hfhub"
	"github.com/modelfleet/fleetctl/pkg/k8sapply"
	"github.com/modelfleet/fleetctl/pkg/lifecycle"
	"github.com/modelfleet/fleetctl/pkg/modelstager"
	"github.com/modelfleet/fleetctl/pkg/modelstore"
)

func newReconcileCommand() *cobra.Command {
	var hfToken string
	var stageConcurrency int

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile the declared model groups against the cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := context.Background()

			doc, err := config.Load(configPath)
			if err != nil {
				return err
			}

			cc := clusterctx.New("aws", doc.AWS.Cluster.Region, doc.AWS.Cluster.Namespace, resolvedBucket(), "")

			k8sClient, err := newK8sClient()
			if err != nil {
				return err
			}
			cc.SetK8sClient(k8sClient)

			namespace, _ := cc.Namespace()
			bucket, _ := cc.Bucket()
			region, _ := cc.Region()

			store, err := modelstore.New(ctx, modelstore.Config{Bucket: bucket, Region: region}, logger)
			if err != nil {
				return err
			}

			hf := hfhub.NewClient("", hfToken)
			stager := modelstager.New(store, hf, stageConcurrency, logger)

			cachedClient, _ := cc.K8sClient()
			prometheusOn := doc.AWS.Prometheus != nil && doc.AWS.Prometheus.Enabled
			controller := lifecycle.New(cachedClient, store, stager, namespace, bucket, serviceAccount, prometheusOn, logger)

			if err := controller.Reconcile(ctx, doc); err != nil {
				logger.Errorf("reconcile completed with errors: %v", err)
				return err
			}
			logger.Infof("reconcile complete for %d model group(s)", len(doc.AWS.ModelGroups)+len(doc.AWS.MixedModelGroups))
			return nil
		},
	}

	cmd.Flags().StringVar(&hfToken, "hf-token", "", "HuggingFace Hub access token for gated/private repos")
	cmd.Flags().IntVar(&stageConcurrency, "stage-concurrency", 0, "concurrent file transfers per staged group (0 selects the default)")
	return cmd
}

func newK8sClient() (client.Client, error) {
	return client.New(ctrl.GetConfigOrDie(), client.Options{Scheme: k8sapply.NewScheme()})
}
