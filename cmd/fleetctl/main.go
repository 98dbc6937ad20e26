// Command fleetctl reconciles a declared set of model groups against a
// Kubernetes cluster: it stages model weights into the Model Store,
// resolves each group's launch plan, builds the Kubernetes object
// graph, and applies it — deleting anything live but no longer
// declared.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modelfleet/fleetctl/pkg/logging"
	"github.com/modelfleet/fleetctl/pkg/version"
)

var (
	configPath     string
	debug          bool
	quiet          bool
	bucket         string
	serviceAccount string
)

var rootCmd = &cobra.Command{
	Use:     "fleetctl",
	Short:   "Operate a fleet of self-hosted model-serving endpoints",
	Long:    "fleetctl reconciles a declared document of model groups against a Kubernetes cluster, staging weights and managing the Deployment/Service/autoscaler/ingress graph for each one.",
	Version: fmt.Sprintf("gitVersion=%s, gitCommit=%s", version.GitVersion, version.GitCommit),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "fleet.yaml", "path to the model-group configuration document")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all logging output")
	rootCmd.PersistentFlags().StringVar(&bucket, "bucket", "", "S3 bucket backing the model store (overrides FLEETCTL_BUCKET)")
	rootCmd.PersistentFlags().StringVar(&serviceAccount, "service-account", "default", "Kubernetes service account the inference pods run under")

	_ = viper.BindPFlag("bucket", rootCmd.PersistentFlags().Lookup("bucket"))
	viper.SetEnvPrefix("fleetctl")
	viper.AutomaticEnv()

	rootCmd.AddCommand(newReconcileCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newStageCommand())
	rootCmd.AddCommand(newVersionCommand())
}

func newLogger() logging.Interface {
	if quiet {
		return logging.Discard()
	}
	cfg, err := logging.NewConfig()
	if err != nil {
		return logging.NewNopLogger()
	}
	cfg.Debug = debug
	zapLogger, err := logging.NewLogger(cfg)
	if err != nil {
		return logging.NewNopLogger()
	}
	return logging.ForZap(zapLogger)
}

func resolvedBucket() string {
	if bucket != "" {
		return bucket
	}
	return viper.GetString("bucket")
}
