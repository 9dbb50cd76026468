package cmd

import (
	"os"

	"gntrecon/internal/config"
	"gntrecon/internal/logging"
	"gntrecon/internal/rapi"
	"gntrecon/internal/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gntrecon",
	Short: "Desired-state reconciler for Ganeti instances",
	Long: `gntrecon drives Ganeti instances toward a declared desired state
over the cluster's remote API (RAPI): it creates missing instances,
destroys listed-for-removal ones and manages power state, waiting for
the asynchronous cluster jobs each operation submits.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the application configuration or exits.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger().Fatal("Failed to load configuration", zap.Error(err))
	}
	return cfg
}

// newReconciler wires transport, poller and reconciler from the
// configuration.
func newReconciler(cfg *config.Config) *reconcile.Reconciler {
	client := rapi.NewClient(cfg.ClientConfig())
	poller := rapi.NewPoller(client, cfg.PollInterval(), cfg.JobTimeout())

	r := reconcile.New(client, poller)
	r.Wait = cfg.Wait
	return r
}
