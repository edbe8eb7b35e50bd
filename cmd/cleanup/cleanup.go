// Package cleanup implements the cleanup subcommand.
package cleanup

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aldirahman/judolscan/internal/clock"
	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/datastore"
	"github.com/aldirahman/judolscan/internal/errors"
	"github.com/aldirahman/judolscan/internal/scanner"
)

// Command creates the cleanup command: delete scans older than the retention
// window.
func Command(settings *conf.Settings) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete scans older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				days = settings.Scanner.RetentionDays
			}
			return runCleanup(settings, days)
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (defaults to the configured value)")

	return cmd
}

func runCleanup(settings *conf.Settings, days int) error {
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

	mgr := scanner.New(store, nil, nil, clock.System(), settings.Scanner, nil)
	deleted, err := mgr.CleanupOlderThan(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d scans older than %d days\n", deleted, days)
	return nil
}
