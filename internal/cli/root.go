// Package cli implements the tasknova commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"tasknova/internal/config"
)

var configPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:          "tasknova",
	Short:        "Telegram reminder bot",
	Long:         "TaskNova turns chat messages into deadlines and sends timed Telegram reminders before them.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $TASKNOVA_CONFIG or "+config.DefaultPath+")")
}

func getConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("TASKNOVA_CONFIG"); env != "" {
		return env
	}
	return config.DefaultPath
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(getConfigPath())
}
