// Package cmd assembles the judolscan command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aldirahman/judolscan/cmd/cleanup"
	"github.com/aldirahman/judolscan/cmd/retrain"
	"github.com/aldirahman/judolscan/cmd/rollback"
	"github.com/aldirahman/judolscan/cmd/scan"
	"github.com/aldirahman/judolscan/cmd/versions"
	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/datastore"
	"github.com/aldirahman/judolscan/internal/logging"
	"github.com/aldirahman/judolscan/internal/retraining"
	"github.com/aldirahman/judolscan/internal/scanner"
	"github.com/aldirahman/judolscan/internal/validation"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "judolscan",
		Short: "Gambling-comment scan and retraining orchestrator",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&settings.Debug, "debug", settings.Debug, "Enable debug output")

	subcommands := []*cobra.Command{
		scan.Command(settings),
		retrain.Command(settings),
		versions.Command(settings),
		rollback.Command(settings),
		cleanup.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// --debug on the command line wins over the config file.
		debugFlag := settings.Debug

		loaded, err := conf.Load(configPath)
		if err != nil {
			return err
		}
		*settings = *loaded

		if cmd.Flags().Changed("debug") {
			settings.Debug = debugFlag
		}

		initServiceLoggers()
		return nil
	}

	return rootCmd
}

// initServiceLoggers sets up the rotating file loggers. Failures are logged
// and tolerated; the services fall back to the shared structured logger.
func initServiceLoggers() {
	for name, init := range map[string]func(string) error{
		"datastore":  datastore.InitializeLogger,
		"scanner":    scanner.InitializeLogger,
		"validation": validation.InitializeLogger,
		"retraining": retraining.InitializeLogger,
	} {
		if err := init(""); err != nil {
			logging.Warn("file logger unavailable", "service", name, "error", err)
		}
	}
}
