package main

import (
	"os"

	"tasknova/internal/cli"
)

// @title        TaskNova API
// @version      1.0
// @description  Telegram reminder bot: webhook intake and read-only task API.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
