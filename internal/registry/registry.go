// Package registry manages the model version catalog: the active version,
// history listing, and manual rollback.
package registry

import (
	"log/slog"

	"github.com/aldirahman/judolscan/internal/clock"
	"github.com/aldirahman/judolscan/internal/datastore"
	"github.com/aldirahman/judolscan/internal/logging"
	"github.com/aldirahman/judolscan/internal/observability"
)

// TrendPoint is one model version's evaluation scores, for plotting metric
// history over time.
type TrendPoint struct {
	Version   string
	Accuracy  *float64
	Precision *float64
	Recall    *float64
	F1        *float64
	Active    bool
}

// Registry reads and mutates the persisted model version catalog.
type Registry struct {
	store   datastore.Interface
	clk     clock.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a model version registry.
func New(store datastore.Interface, clk clock.Clock, metrics *observability.Metrics) *Registry {
	logger := logging.ForService("registry")
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:   store,
		clk:     clk,
		metrics: metrics,
		logger:  logger,
	}
}

// GetActive returns the currently serving model version.
func (r *Registry) GetActive() (*datastore.ModelVersion, error) {
	return r.store.GetActiveModelVersion()
}

// List returns recent versions, newest first. A non-positive limit returns
// everything.
func (r *Registry) List(limit int) ([]datastore.ModelVersion, error) {
	return r.store.ListModelVersions(limit)
}

// Activate switches serving to an existing version, typically a rollback.
// The swap deactivates the previous version in the same transaction; no
// feedback rows are consumed.
func (r *Registry) Activate(versionID string) (*datastore.ModelVersion, error) {
	if err := r.store.ActivateModelVersion(versionID, nil, r.clk.Now()); err != nil {
		return nil, err
	}

	mv, err := r.store.GetModelVersion(versionID)
	if err != nil {
		return nil, err
	}
	r.metrics.SetActiveModel(mv.Version)
	r.logger.Info("model version activated manually", "version", mv.Version)
	return mv, nil
}

// MetricsTrend returns the evaluation scores of recent versions, oldest
// first, for charting model quality over successive retrainings.
func (r *Registry) MetricsTrend(limit int) ([]TrendPoint, error) {
	versions, err := r.store.ListModelVersions(limit)
	if err != nil {
		return nil, err
	}

	// ListModelVersions is newest first; the trend reads better oldest first.
	points := make([]TrendPoint, len(versions))
	for i := range versions {
		v := versions[len(versions)-1-i]
		points[i] = TrendPoint{
			Version:   v.Version,
			Accuracy:  v.Accuracy,
			Precision: v.Precision,
			Recall:    v.Recall,
			F1:        v.F1,
			Active:    v.IsActive,
		}
	}
	return points, nil
}
