package retraining

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/aldirahman/judolscan/internal/clock"
	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/datastore"
	"github.com/aldirahman/judolscan/internal/errors"
)

// Monitor watches the pending validation count and launches a retraining run
// once it crosses the threshold. The persisted lock guarantees at most one
// run at a time even across process restarts; a stale lock from a crashed
// run is reclaimed after the configured timeout.
type Monitor struct {
	store    datastore.Interface
	orch     *Orchestrator
	clk      clock.Clock
	settings conf.RetrainingSettings
	logger   *slog.Logger

	runs sync.WaitGroup
}

// NewMonitor creates a threshold monitor around the orchestrator.
func NewMonitor(store datastore.Interface, orch *Orchestrator, clk clock.Clock, settings conf.RetrainingSettings) *Monitor {
	return &Monitor{
		store:    store,
		orch:     orch,
		clk:      clk,
		settings: settings,
		logger:   getLogger(),
	}
}

// Notify re-checks the pending count and, when the threshold is met and no
// run is in flight, starts one in the background. Calls while a run is in
// progress are ignored.
func (m *Monitor) Notify() {
	pending, err := m.store.CountPendingValidations()
	if err != nil {
		m.logger.Error("pending validation count failed", "error", err)
		return
	}
	if pending < int64(m.settings.Threshold) {
		return
	}

	owner := uuid.New().String()
	acquired, err := m.store.AcquireRetrainingLock(owner, m.settings.LockStaleAfter, m.clk.Now())
	if err != nil {
		m.logger.Error("retraining lock acquisition failed", "error", err)
		return
	}
	if !acquired {
		return
	}

	m.logger.Info("retraining threshold reached", "pending", pending, "threshold", m.settings.Threshold)
	m.runs.Add(1)
	go func() {
		defer m.runs.Done()
		defer func() {
			if err := m.store.ReleaseRetrainingLock(owner); err != nil {
				m.logger.Error("retraining lock release failed", "owner", owner, "error", err)
			}
		}()

		result, err := m.orch.Retrain(context.Background())
		if err != nil {
			m.logger.Error("retraining run failed", "status", result.Status, "error", err)
			return
		}
		m.logger.Info("retraining run finished",
			"status", result.Status, "version", result.Version, "reason", result.Reason)
	}()
}

// TriggerNow runs a retraining synchronously, still under the single-flight
// lock. Used by the manual retrain command.
func (m *Monitor) TriggerNow(ctx context.Context) (RunResult, error) {
	owner := uuid.New().String()
	acquired, err := m.store.AcquireRetrainingLock(owner, m.settings.LockStaleAfter, m.clk.Now())
	if err != nil {
		return RunResult{Status: StatusFailed}, err
	}
	if !acquired {
		return RunResult{}, errors.Newf("a retraining run is already in progress").
			Component("retraining").
			Category(errors.CategoryConflict).
			Build()
	}
	defer func() {
		if err := m.store.ReleaseRetrainingLock(owner); err != nil {
			m.logger.Error("retraining lock release failed", "owner", owner, "error", err)
		}
	}()

	return m.orch.Retrain(ctx)
}

// Wait blocks until all background runs started by Notify have finished.
func (m *Monitor) Wait() {
	m.runs.Wait()
}
