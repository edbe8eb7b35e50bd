// Package scan implements the scan subcommand.
package scan

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aldirahman/judolscan/internal/clock"
	"github.com/aldirahman/judolscan/internal/comments"
	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/datastore"
	"github.com/aldirahman/judolscan/internal/engine"
	"github.com/aldirahman/judolscan/internal/errors"
	"github.com/aldirahman/judolscan/internal/observability"
	"github.com/aldirahman/judolscan/internal/scanner"
)

// Command creates the scan command: classify an exported comment dump and
// persist the results as a scan job.
func Command(settings *conf.Settings) *cobra.Command {
	var commentsFile string
	var modelPath string
	var showResults bool

	cmd := &cobra.Command{
		Use:   "scan [video-id]",
		Short: "Scan a video's comments for gambling promotion",
		Long: `Scan classifies every comment in an exported comment dump and stores
the per-comment results under a scan job keyed by the video ID.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(settings, args[0], commentsFile, modelPath, showResults)
		},
	}

	cmd.Flags().StringVarP(&commentsFile, "comments-file", "f", "", "Path to a JSON comment export")
	cmd.Flags().StringVar(&modelPath, "model", "", "Model artifact to classify with (defaults to the active version)")
	cmd.Flags().BoolVar(&showResults, "results", false, "Print per-comment results")
	_ = cmd.MarkFlagRequired("comments-file")

	return cmd
}

func runScan(settings *conf.Settings, videoID, commentsFile, modelPath string, showResults bool) error {
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

	predictor, err := loadPredictor(store, settings, modelPath)
	if err != nil {
		return err
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	mgr := scanner.New(store, &comments.FileSource{Path: commentsFile}, predictor, clock.System(), settings.Scanner, metrics)
	mgr.Start()
	defer mgr.Stop()

	job, err := mgr.StartScan(videoID)
	if err != nil {
		return err
	}
	fmt.Printf("scan %s queued for video %s\n", job.ID, videoID)

	for {
		time.Sleep(200 * time.Millisecond)
		job, err = mgr.GetStatus(job.ID)
		if err != nil {
			return err
		}
		if job.Terminal() {
			break
		}
	}

	if job.Status == datastore.StatusFailed {
		return errors.Newf("scan failed: %s", job.ErrorMessage).
			Component("scanner").
			Category(errors.CategoryState).
			Context("scan_id", job.ID).
			Build()
	}

	fmt.Printf("scan completed: %d comments, %d gambling, %d clean\n",
		job.TotalComments, job.GamblingCount, job.CleanCount)

	if showResults {
		_, results, err := mgr.Results(job.ID)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "LABEL\tCONFIDENCE\tAUTHOR\tCOMMENT")
		for i := range results {
			label := "clean"
			if results[i].IsGambling {
				label = "gambling"
			}
			fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\n", label, results[i].Confidence, results[i].AuthorName, results[i].CommentText)
		}
		_ = w.Flush()
	}
	return nil
}

// loadPredictor resolves the classification model: an explicit artifact path
// wins, otherwise the active registry version is used.
func loadPredictor(store datastore.Interface, settings *conf.Settings, modelPath string) (engine.Predictor, error) {
	if modelPath == "" {
		active, err := store.GetActiveModelVersion()
		if err != nil {
			if errors.IsNotFound(err) {
				return nil, errors.Newf("no active model version, pass --model or run retrain first").
					Component("scanner").
					Category(errors.CategoryModelLoad).
					Build()
			}
			return nil, err
		}
		modelPath = active.FilePath
	}

	model, err := engine.LoadWordlistModel(modelPath)
	if err != nil {
		return nil, err
	}
	return engine.NewCachedPredictor(model, settings.Predictor.CacheTTL), nil
}
