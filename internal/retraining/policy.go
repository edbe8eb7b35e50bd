package retraining

import (
	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/datastore"
	"github.com/aldirahman/judolscan/internal/engine"
)

// DeployPolicy decides whether a freshly trained candidate replaces the
// currently active version. Active is nil when no version is active yet.
type DeployPolicy func(candidate engine.Metrics, active *datastore.ModelVersion) bool

// AlwaysDeploy activates every successfully trained candidate.
func AlwaysDeploy(engine.Metrics, *datastore.ModelVersion) bool {
	return true
}

// MinAccuracyPolicy deploys only candidates meeting the accuracy floor.
func MinAccuracyPolicy(floor float64) DeployPolicy {
	return func(candidate engine.Metrics, _ *datastore.ModelVersion) bool {
		return candidate.Accuracy >= floor
	}
}

// PolicyFromSettings maps the configured policy name to a DeployPolicy.
func PolicyFromSettings(settings conf.RetrainingSettings) DeployPolicy {
	if settings.Policy == "min-accuracy" {
		return MinAccuracyPolicy(settings.MinAccuracy)
	}
	return AlwaysDeploy
}
