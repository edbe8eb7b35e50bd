package main

import (
	"os"

	"github.com/aldirahman/judolscan/cmd"
	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/logging"
)

func main() {
	logging.Init()

	settings := conf.Default()
	rootCmd := cmd.RootCommand(settings)

	if err := rootCmd.Execute(); err != nil {
		logging.Error("command failed", "error", err)
		os.Exit(1)
	}
}
