// Package validation records user confirmations and corrections of scan
// predictions, with a short undo window per submission.
package validation

import (
	"log/slog"
	"sync"

	"github.com/aldirahman/judolscan/internal/clock"
	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/datastore"
	"github.com/aldirahman/judolscan/internal/errors"
	"github.com/aldirahman/judolscan/internal/observability"
)

// SubmitRequest is one user judgment on one scan result.
type SubmitRequest struct {
	ScanResultID string
	UserID       string
	IsCorrect    bool
	// CorrectedLabel is required when IsCorrect is false.
	CorrectedLabel *bool
}

// Stats summarizes a user's validation activity and global retraining
// progress.
type Stats struct {
	TotalValidations int64
	Corrections      int64
	PendingCount     int64
	Threshold        int
	ProgressPercent  float64
}

// BatchResult reports a bulk validation outcome. Successful plus Failed
// always equals the number of submitted result IDs, Validations holds one
// entry per success and Errors one message per failure.
type BatchResult struct {
	Successful  int
	Failed      int
	Validations []datastore.ValidationFeedback
	Errors      []string
}

// Bulk validation actions.
const (
	ActionConfirmAll   = "confirm_all"
	ActionMarkGambling = "mark_gambling"
	ActionMarkClean    = "mark_clean"
)

// Service implements validation submission, undo, and stats. Each submission
// arms a timer; once it fires the validation can no longer be undone. The
// timer expiry and an Undo call race for the same entry, and whichever claims
// it first wins.
type Service struct {
	store    datastore.Interface
	clk      clock.Clock
	settings conf.ValidationSettings

	// threshold is the retraining trigger count, surfaced in stats.
	threshold int

	metrics *observability.Metrics
	logger  *slog.Logger

	// notify is invoked after each accepted submission so the threshold
	// monitor can re-check the pending count.
	notify func()

	mu     sync.Mutex
	timers map[string]clock.Timer // validation ID -> pending undo timer
}

// New creates the validation service.
func New(store datastore.Interface, clk clock.Clock, settings conf.ValidationSettings, threshold int, metrics *observability.Metrics) *Service {
	return &Service{
		store:     store,
		clk:       clk,
		settings:  settings,
		threshold: threshold,
		metrics:   metrics,
		logger:    getLogger(),
		timers:    make(map[string]clock.Timer),
	}
}

// SetNotifier registers the callback run after each accepted submission.
func (s *Service) SetNotifier(notify func()) {
	s.notify = notify
}

// Submit records one validation. Resubmitting the same (result, user) pair
// updates the existing row and re-arms its undo window.
func (s *Service) Submit(req SubmitRequest) (*datastore.ValidationFeedback, error) {
	if req.ScanResultID == "" || req.UserID == "" {
		return nil, errors.ValidationError("scan_result_id and user_id must not be empty")
	}
	if !req.IsCorrect && req.CorrectedLabel == nil {
		return nil, errors.Newf("corrected_label is required when the prediction is marked wrong").
			Component("validation").
			Category(errors.CategoryMissingCorrection).
			Context("scan_result_id", req.ScanResultID).
			Build()
	}

	result, err := s.store.GetScanResult(req.ScanResultID)
	if err != nil {
		return nil, err
	}

	correctedLabel := result.IsGambling
	if !req.IsCorrect {
		correctedLabel = *req.CorrectedLabel
	}

	saved, err := s.store.UpsertValidation(&datastore.ValidationFeedback{
		ScanResultID:       result.ID,
		UserID:             req.UserID,
		CommentText:        result.CommentText,
		OriginalPrediction: result.IsGambling,
		OriginalConfidence: result.Confidence,
		CorrectedLabel:     correctedLabel,
		IsCorrection:       !req.IsCorrect,
		ValidatedAt:        s.clk.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.armUndoTimer(saved.ID)
	s.metrics.ValidationSubmitted()
	s.logger.Info("validation submitted",
		"validation_id", saved.ID,
		"scan_result_id", result.ID,
		"is_correction", saved.IsCorrection)

	if s.notify != nil {
		s.notify()
	}
	return saved, nil
}

// BatchValidate applies one action to the given scan results on behalf of the
// user. Individual failures do not abort the batch; each one adds an entry to
// Errors while each accepted submission adds its row to Validations.
func (s *Service) BatchValidate(resultIDs []string, userID, action string) (BatchResult, error) {
	switch action {
	case ActionConfirmAll, ActionMarkGambling, ActionMarkClean:
	default:
		return BatchResult{}, errors.ValidationError("unknown batch action " + action)
	}

	var out BatchResult
	for _, resultID := range resultIDs {
		result, err := s.store.GetScanResult(resultID)
		if err != nil {
			s.logger.Warn("batch validation entry failed",
				"scan_result_id", resultID, "error", err)
			out.Failed++
			out.Errors = append(out.Errors, resultID+": "+err.Error())
			continue
		}

		req := SubmitRequest{
			ScanResultID: result.ID,
			UserID:       userID,
		}
		switch action {
		case ActionConfirmAll:
			req.IsCorrect = true
		case ActionMarkGambling:
			label := true
			req.IsCorrect = result.IsGambling
			req.CorrectedLabel = &label
		case ActionMarkClean:
			label := false
			req.IsCorrect = !result.IsGambling
			req.CorrectedLabel = &label
		}

		saved, err := s.Submit(req)
		if err != nil {
			s.logger.Warn("batch validation entry failed",
				"scan_result_id", resultID, "error", err)
			out.Failed++
			out.Errors = append(out.Errors, resultID+": "+err.Error())
			continue
		}
		out.Successful++
		out.Validations = append(out.Validations, *saved)
	}

	s.logger.Info("batch validation finished",
		"action", action,
		"successful", out.Successful, "failed", out.Failed)
	return out, nil
}

// Undo removes a validation if its undo window is still open. Exactly one of
// Undo and the window expiry claims the timer entry; the loser gets an
// undo-expired error here or a no-op there.
func (s *Service) Undo(validationID, userID string) error {
	if _, err := s.store.GetValidation(validationID, userID); err != nil {
		return err
	}

	s.mu.Lock()
	timer, open := s.timers[validationID]
	if open {
		delete(s.timers, validationID)
	}
	s.mu.Unlock()

	if !open {
		return errors.Newf("undo window for validation %s has expired", validationID).
			Component("validation").
			Category(errors.CategoryUndoExpired).
			Context("validation_id", validationID).
			Build()
	}
	timer.Stop()

	if err := s.store.DeleteValidation(validationID); err != nil {
		return err
	}
	s.metrics.ValidationUndone()
	s.logger.Info("validation undone", "validation_id", validationID)
	return nil
}

// GetStats returns the user's validation totals and the global progress
// toward the retraining threshold.
func (s *Service) GetStats(userID string) (Stats, error) {
	total, err := s.store.CountValidations(userID)
	if err != nil {
		return Stats{}, err
	}
	corrections, err := s.store.CountCorrections(userID)
	if err != nil {
		return Stats{}, err
	}
	pending, err := s.store.CountPendingValidations()
	if err != nil {
		return Stats{}, err
	}
	s.metrics.SetPendingValidations(pending)

	progress := 0.0
	if s.threshold > 0 {
		progress = min(100, float64(pending)*100/float64(s.threshold))
	}
	return Stats{
		TotalValidations: total,
		Corrections:      corrections,
		PendingCount:     pending,
		Threshold:        s.threshold,
		ProgressPercent:  progress,
	}, nil
}

// ListForScan returns the user's validations on a scan's results.
func (s *Service) ListForScan(scanID, userID string) ([]datastore.ValidationFeedback, error) {
	return s.store.ListValidationsForScan(scanID, userID)
}

// armUndoTimer (re)starts the undo window for a validation. A resubmission
// replaces any previously armed timer.
func (s *Service) armUndoTimer(validationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[validationID]; ok {
		old.Stop()
	}

	var timer clock.Timer
	timer = s.clk.AfterFunc(s.settings.UndoWindow, func() {
		s.mu.Lock()
		// Only the timer that still owns the entry may expire it; a
		// resubmission or a concurrent Undo already claimed it otherwise.
		if current, ok := s.timers[validationID]; ok && current == timer {
			delete(s.timers, validationID)
		}
		s.mu.Unlock()
	})
	s.timers[validationID] = timer
}
