package cmd

import (
	"context"
	"fmt"
	"os"

	"gntrecon/internal/reconcile"
	"gntrecon/internal/spec"

	"github.com/spf13/cobra"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start <instance>",
	Short: "Start a stopped instance",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPower(args[0], reconcile.StateStarted)
	},
}

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop <instance>",
	Short: "Shut down a running instance",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPower(args[0], reconcile.StateStopped)
	},
}

// restartCmd represents the restart command
var restartCmd = &cobra.Command{
	Use:   "restart <instance>",
	Short: "Reboot a running instance, or start it if it is down",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPower(args[0], reconcile.StateRestarted)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
}

func runPower(name string, desired reconcile.DesiredState) {
	cfg := loadConfig()
	r := newReconciler(cfg)

	res := r.Reconcile(context.Background(), &spec.InstanceSpec{Name: name}, desired)
	if res.Err != nil {
		fmt.Printf("%s: %s - %v\n", res.Name, res.State, res.Err)
		os.Exit(1)
	}

	line := fmt.Sprintf("%s: %s (changed=%v)", res.Name, res.State, res.Changed)
	if res.Message != "" {
		line += " - " + res.Message
	}
	fmt.Println(line)
}
