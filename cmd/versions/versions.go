// Package versions implements the versions subcommand.
package versions

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aldirahman/judolscan/internal/clock"
	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/datastore"
	"github.com/aldirahman/judolscan/internal/errors"
	"github.com/aldirahman/judolscan/internal/registry"
)

// Command creates the versions command: list the model version catalog or
// its metric trend.
func Command(settings *conf.Settings) *cobra.Command {
	var limit int
	var trend bool

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List model versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersions(settings, limit, trend)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum versions to show")
	cmd.Flags().BoolVar(&trend, "trend", false, "Show metric trend, oldest first")

	return cmd
}

func runVersions(settings *conf.Settings, limit int, trend bool) error {
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

	reg := registry.New(store, clock.System(), nil)
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	if trend {
		points, err := reg.MetricsTrend(limit)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "VERSION\tACCURACY\tPRECISION\tRECALL\tF1\tACTIVE")
		for i := range points {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%v\n",
				points[i].Version,
				formatMetric(points[i].Accuracy),
				formatMetric(points[i].Precision),
				formatMetric(points[i].Recall),
				formatMetric(points[i].F1),
				points[i].Active)
		}
		return nil
	}

	list, err := reg.List(limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "ID\tVERSION\tSAMPLES\tACCURACY\tACTIVE\tCREATED")
	for i := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%v\t%s\n",
			list[i].ID,
			list[i].Version,
			list[i].TrainingSamples,
			formatMetric(list[i].Accuracy),
			list[i].IsActive,
			list[i].CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func formatMetric(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *v)
}
