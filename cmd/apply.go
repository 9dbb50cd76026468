package cmd

import (
	"context"
	"fmt"
	"os"

	"gntrecon/internal/logging"
	"gntrecon/internal/manifest"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var applyManifestFile string

// applyCmd represents the apply command
var applyCmd = &cobra.Command{
	Use:   "apply [manifest file]",
	Short: "Reconcile the cluster against a desired-state manifest",
	Long: `Read a YAML manifest of desired instances and absent names, and
reconcile every entry against the cluster. Entries fail independently;
the exit code is non-zero if any entry failed.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if applyManifestFile == "" {
			if len(args) > 0 {
				applyManifestFile = args[0]
			} else {
				logging.Logger().Fatal("Manifest file is required")
			}
		}

		applyManifest(applyManifestFile)
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVarP(&applyManifestFile, "manifest", "f", "", "Path to desired-state YAML manifest")
}

func applyManifest(path string) {
	cfg := loadConfig()

	m, err := manifest.Load(path)
	if err != nil {
		logging.Logger().Fatal("Failed to load manifest", zap.Error(err))
	}

	plan := m.Plan()
	for i := range plan.Ensure {
		cfg.ApplyDefaults(&plan.Ensure[i])
	}

	r := newReconciler(cfg)
	results, err := r.ReconcileAll(context.Background(), plan, cfg.MaxWorkers)
	if err != nil {
		logging.Logger().Fatal("Invalid plan", zap.Error(err))
	}

	failures := 0
	for _, res := range results {
		line := fmt.Sprintf("%s: %s (changed=%v)", res.Name, res.State, res.Changed)
		if res.Message != "" {
			line += " - " + res.Message
		}
		if res.Err != nil {
			line += " - " + res.Err.Error()
			failures++
		}
		fmt.Println(line)
	}

	if failures > 0 {
		logging.Logger().Error("Some reconciliations failed", zap.Int("failed", failures))
		os.Exit(1)
	}
}
