package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gntrecon/internal/logging"
	"gntrecon/internal/rapi"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <instance>",
	Short: "Show the current state of an instance",
	Long:  `Query RAPI for the named instance and print its configuration as JSON.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		showStatus(args[0])
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func showStatus(name string) {
	cfg := loadConfig()
	client := rapi.NewClient(cfg.ClientConfig())

	inst, err := client.GetInstance(context.Background(), name)
	if err != nil {
		var notFound *rapi.NotFoundError
		if errors.As(err, &notFound) {
			fmt.Printf("instance %q not found\n", name)
			os.Exit(1)
		}
		logging.Logger().Fatal("Failed to query instance", zap.Error(err))
	}

	out, err := json.MarshalIndent(inst, "", "  ")
	if err != nil {
		logging.Logger().Fatal("Failed to encode instance", zap.Error(err))
	}
	fmt.Println(string(out))
}
