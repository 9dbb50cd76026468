package cmd

import (
	"context"
	"fmt"
	"os"

	"gntrecon/internal/logging"
	"gntrecon/internal/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// destroyCmd represents the destroy command
var destroyCmd = &cobra.Command{
	Use:   "destroy <instance>...",
	Short: "Destroy one or more instances",
	Long: `Submit removal jobs for the named instances and wait for completion.
Instances that do not exist are reported as unchanged. This cannot be
undone.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		destroyInstances(args)
	},
}

func init() {
	rootCmd.AddCommand(destroyCmd)
}

func destroyInstances(names []string) {
	cfg := loadConfig()
	r := newReconciler(cfg)

	results, err := r.ReconcileAll(context.Background(), reconcile.Plan{Remove: names}, cfg.MaxWorkers)
	if err != nil {
		logging.Logger().Fatal("Invalid plan", zap.Error(err))
	}

	failures := 0
	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("%s: %s - %v\n", res.Name, res.State, res.Err)
			failures++
			continue
		}
		fmt.Printf("%s: %s (changed=%v)\n", res.Name, res.State, res.Changed)
	}

	if failures > 0 {
		os.Exit(1)
	}
}
