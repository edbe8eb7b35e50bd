// Package retrain implements the retrain subcommand.
package retrain

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aldirahman/judolscan/internal/clock"
	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/dataset"
	"github.com/aldirahman/judolscan/internal/datastore"
	"github.com/aldirahman/judolscan/internal/engine"
	"github.com/aldirahman/judolscan/internal/errors"
	"github.com/aldirahman/judolscan/internal/observability"
	"github.com/aldirahman/judolscan/internal/retraining"
)

// Command creates the retrain command: run the retraining pipeline manually,
// or preview what it would train on.
func Command(settings *conf.Settings) *cobra.Command {
	var preview bool

	cmd := &cobra.Command{
		Use:   "retrain",
		Short: "Retrain the classifier from the corpus plus accumulated feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRetrain(cmd, settings, preview)
		},
	}

	cmd.Flags().BoolVar(&preview, "preview", false, "Show the projected training set without training")

	return cmd
}

func runRetrain(cmd *cobra.Command, settings *conf.Settings, preview bool) error {
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

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	clk := clock.System()
	orch := retraining.NewOrchestrator(
		store,
		dataset.NewCSVSource(settings.Retraining.DatasetPath),
		&engine.WordlistTrainer{ModelDir: settings.Retraining.ModelDir},
		clk,
		settings.Retraining,
		nil,
		metrics,
	)

	if preview {
		p, err := orch.PreviewRun()
		if err != nil {
			return err
		}
		fmt.Printf("pending validations: %d (%d corrections, %d confirmations)\n",
			p.PendingValidations, p.Corrections, p.Confirmations)
		fmt.Printf("base corpus: %d samples\n", p.BaseSamples)
		fmt.Printf("projected training set: %d samples (minimum %d)\n", p.MergedSamples, p.MinSamples)
		if p.WouldRun {
			fmt.Println("a run would proceed")
		} else {
			fmt.Println("a run would abort: not enough samples")
		}
		return nil
	}

	monitor := retraining.NewMonitor(store, orch, clk, settings.Retraining)
	result, err := monitor.TriggerNow(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("retraining %s\n", result.Status)
	if result.Version != "" {
		fmt.Printf("version: %s\n", result.Version)
		fmt.Printf("samples: %d (%d from feedback)\n", result.TrainingSamples, result.ValidationSamples)
		fmt.Printf("accuracy %.3f precision %.3f recall %.3f f1 %.3f\n",
			result.Metrics.Accuracy, result.Metrics.Precision, result.Metrics.Recall, result.Metrics.F1)
	}
	if result.Reason != "" {
		fmt.Printf("reason: %s\n", result.Reason)
	}
	return nil
}
