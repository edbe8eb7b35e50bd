// Package rollback implements the rollback subcommand.
package rollback

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aldirahman/judolscan/internal/clock"
	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/datastore"
	"github.com/aldirahman/judolscan/internal/errors"
	"github.com/aldirahman/judolscan/internal/registry"
)

// Command creates the rollback command: activate a previous model version.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback [version-id]",
		Short: "Activate a previously trained model version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(settings, args[0])
		},
	}
}

func runRollback(settings *conf.Settings, versionID string) error {
	store := datastore.New(settings)
	if store == nil {
		return errors.Newf("no database backend enabled").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	mv, err := registry.New(store, clock.System(), nil).Activate(versionID)
	if err != nil {
		return err
	}
	fmt.Printf("version %s is now active\n", mv.Version)
	return nil
}
