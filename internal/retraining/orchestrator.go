// Package retraining assembles training data from the original corpus and
// accumulated validation feedback, runs the trainer, and deploys the result.
package retraining

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aldirahman/judolscan/internal/clock"
	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/dataset"
	"github.com/aldirahman/judolscan/internal/datastore"
	"github.com/aldirahman/judolscan/internal/engine"
	"github.com/aldirahman/judolscan/internal/errors"
	"github.com/aldirahman/judolscan/internal/observability"
)

// Run outcome statuses.
const (
	StatusDeployed         = "deployed"
	StatusSkipped          = "skipped"
	StatusInsufficientData = "insufficient-data"
	StatusFailed           = "failed"
)

// RunResult summarizes one retraining run.
type RunResult struct {
	Status            string
	VersionID         string
	Version           string
	Metrics           engine.Metrics
	Reason            string
	TrainingSamples   int
	ValidationSamples int
}

// Preview describes what the next run would train on, without mutating
// anything.
type Preview struct {
	PendingValidations int
	Corrections        int
	Confirmations      int
	BaseSamples        int
	MergedSamples      int
	MinSamples         int
	WouldRun           bool
}

// Orchestrator runs the full retraining pipeline. Callers are responsible for
// single-flight; see Monitor.
type Orchestrator struct {
	store    datastore.Interface
	source   dataset.Source
	trainer  engine.Trainer
	clk      clock.Clock
	settings conf.RetrainingSettings
	policy   DeployPolicy
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewOrchestrator creates a retraining orchestrator with the given deploy
// policy.
func NewOrchestrator(store datastore.Interface, source dataset.Source, trainer engine.Trainer, clk clock.Clock, settings conf.RetrainingSettings, policy DeployPolicy, metrics *observability.Metrics) *Orchestrator {
	if policy == nil {
		policy = PolicyFromSettings(settings)
	}
	return &Orchestrator{
		store:    store,
		source:   source,
		trainer:  trainer,
		clk:      clk,
		settings: settings,
		policy:   policy,
		metrics:  metrics,
		logger:   getLogger(),
	}
}

// Retrain executes one full run: assemble data, train, decide, deploy. A
// failed run leaves the active model and the pending feedback untouched.
func (o *Orchestrator) Retrain(ctx context.Context) (RunResult, error) {
	started := o.clk.Now()
	result, err := o.retrain(ctx)
	o.metrics.RetrainingRun(result.Status, o.clk.Now().Sub(started).Seconds())
	return result, err
}

func (o *Orchestrator) retrain(ctx context.Context) (RunResult, error) {
	feedback, err := o.store.ListUnusedValidations()
	if err != nil {
		return RunResult{Status: StatusFailed}, err
	}

	base, err := o.source.Load()
	if err != nil {
		return RunResult{Status: StatusFailed}, err
	}

	merged := mergeTrainingData(base, feedback)
	result := RunResult{
		TrainingSamples:   len(merged),
		ValidationSamples: len(feedback),
	}

	if len(merged) < o.settings.MinSamples {
		result.Status = StatusInsufficientData
		result.Reason = "combined training set below minimum sample count"
		o.logger.Warn("retraining aborted, not enough samples",
			"samples", len(merged), "min_samples", o.settings.MinSamples)
		return result, errors.Newf("training set has %d samples, need at least %d", len(merged), o.settings.MinSamples).
			Component("retraining").
			Category(errors.CategoryInsufficientData).
			Context("samples", len(merged)).
			Context("min_samples", o.settings.MinSamples).
			Build()
	}

	artifactPath, trained, err := o.trainer.Train(ctx, merged)
	if err != nil {
		result.Status = StatusFailed
		return result, errors.New(err).
			Component("retraining").
			Category(errors.CategoryTrainingEngine).
			Context("samples", len(merged)).
			Build()
	}
	result.Metrics = trained

	active, err := o.store.GetActiveModelVersion()
	if err != nil && !errors.IsNotFound(err) {
		result.Status = StatusFailed
		return result, err
	}

	now := o.clk.Now()
	version := &datastore.ModelVersion{
		ID:                uuid.New().String(),
		Version:           "v" + now.UTC().Format("20060102_150405"),
		FilePath:          artifactPath,
		TrainingSamples:   len(merged),
		ValidationSamples: len(feedback),
		Accuracy:          &trained.Accuracy,
		Precision:         &trained.Precision,
		Recall:            &trained.Recall,
		F1:                &trained.F1,
	}
	if err := o.store.SaveModelVersion(version); err != nil {
		result.Status = StatusFailed
		return result, err
	}
	result.VersionID = version.ID
	result.Version = version.Version

	if !o.policy(trained, active) {
		// The candidate stays on record but inactive, and the feedback
		// stays pending for the next run.
		result.Status = StatusSkipped
		result.Reason = "deploy policy rejected the candidate"
		o.logger.Info("retrained model not deployed",
			"version", version.Version, "accuracy", trained.Accuracy)
		return result, nil
	}

	consumed := make([]string, len(feedback))
	for i := range feedback {
		consumed[i] = feedback[i].ID
	}
	if err := o.store.ActivateModelVersion(version.ID, consumed, now); err != nil {
		result.Status = StatusFailed
		return result, err
	}

	o.metrics.SetActiveModel(version.Version)
	result.Status = StatusDeployed
	o.logger.Info("retrained model deployed",
		"version", version.Version,
		"training_samples", len(merged),
		"validation_samples", len(feedback),
		"accuracy", trained.Accuracy)
	return result, nil
}

// PreviewRun reports the shape of the training set a run would use right now.
func (o *Orchestrator) PreviewRun() (Preview, error) {
	feedback, err := o.store.ListUnusedValidations()
	if err != nil {
		return Preview{}, err
	}
	base, err := o.source.Load()
	if err != nil {
		return Preview{}, err
	}

	p := Preview{
		PendingValidations: len(feedback),
		BaseSamples:        len(base),
		MergedSamples:      len(mergeTrainingData(base, feedback)),
		MinSamples:         o.settings.MinSamples,
	}
	for i := range feedback {
		if feedback[i].IsCorrection {
			p.Corrections++
		} else {
			p.Confirmations++
		}
	}
	p.WouldRun = p.MergedSamples >= o.settings.MinSamples
	return p, nil
}

// mergeTrainingData unions the base corpus with validation feedback, deduped
// by comment text. Later entries win, so feedback overrides the corpus and
// newer feedback overrides older; feedback arrives ordered oldest first.
func mergeTrainingData(base engine.Dataset, feedback []datastore.ValidationFeedback) engine.Dataset {
	index := make(map[string]int, len(base)+len(feedback))
	var merged engine.Dataset

	add := func(comment string, gambling bool) {
		if i, seen := index[comment]; seen {
			merged[i].Gambling = gambling
			return
		}
		index[comment] = len(merged)
		merged = append(merged, engine.Example{Comment: comment, Gambling: gambling})
	}

	for i := range base {
		add(base[i].Comment, base[i].Gambling)
	}
	for i := range feedback {
		add(feedback[i].CommentText, feedback[i].CorrectedLabel)
	}
	return merged
}
