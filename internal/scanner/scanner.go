// Package scanner runs asynchronous comment scan jobs: fetching every comment
// on a video, classifying them, and persisting the per-comment results.
package scanner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aldirahman/judolscan/internal/clock"
	"github.com/aldirahman/judolscan/internal/comments"
	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/datastore"
	"github.com/aldirahman/judolscan/internal/engine"
	"github.com/aldirahman/judolscan/internal/errors"
	"github.com/aldirahman/judolscan/internal/observability"
)

// Manager owns the scan worker pool. Jobs are accepted by StartScan, queued on
// a bounded channel, and processed by a fixed set of workers.
type Manager struct {
	store     datastore.Interface
	source    comments.Source
	predictor engine.Predictor
	clk       clock.Clock
	settings  conf.ScannerSettings
	metrics   *observability.Metrics
	logger    *slog.Logger

	jobs   chan *datastore.ScanJob
	wg     sync.WaitGroup
	cancel context.CancelFunc

	// mu guards stopped and orders enqueues before the channel close in Stop.
	mu      sync.Mutex
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a scan job manager. Start must be called before jobs are
// processed.
func New(store datastore.Interface, source comments.Source, predictor engine.Predictor, clk clock.Clock, settings conf.ScannerSettings, metrics *observability.Metrics) *Manager {
	return &Manager{
		store:     store,
		source:    source,
		predictor: predictor,
		clk:       clk,
		settings:  settings,
		metrics:   metrics,
		logger:    getLogger(),
		jobs:      make(chan *datastore.ScanJob, settings.QueueSize),
	}
}

// Start launches the worker pool.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		for i := 0; i < m.settings.Workers; i++ {
			m.wg.Add(1)
			go m.worker(ctx)
		}
		m.logger.Info("scan workers started", "workers", m.settings.Workers, "queue_size", m.settings.QueueSize)
	})
}

// Stop drains in-flight work and shuts the pool down. Queued jobs that have
// not started yet stay pending in the store.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		m.mu.Lock()
		m.stopped = true
		close(m.jobs)
		m.mu.Unlock()
		m.wg.Wait()
		m.logger.Info("scan workers stopped")
	})
}

// StartScan creates a pending scan job for the video and enqueues it. The job
// ID is returned immediately; progress is observed through GetStatus.
func (m *Manager) StartScan(videoID string) (*datastore.ScanJob, error) {
	if videoID == "" {
		return nil, errors.ValidationError("video_id must not be empty")
	}

	job := &datastore.ScanJob{
		ID:      uuid.New().String(),
		VideoID: videoID,
		Status:  datastore.StatusPending,
		TaskID:  uuid.New().String(),
	}
	if err := m.store.SaveScanJob(job); err != nil {
		return nil, err
	}

	if err := m.enqueue(job); err != nil {
		_ = m.store.FailScanJob(job.ID, err.Error())
		return nil, err
	}

	m.metrics.ScanStarted()
	m.logger.Info("scan job queued", "scan_id", job.ID, "video_id", videoID)
	return job, nil
}

// enqueue hands the job to the worker queue. It refuses jobs once Stop has
// run, and when the queue has no room left.
func (m *Manager) enqueue(job *datastore.ScanJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return errors.Newf("scan workers are stopped").
			Component("scanner").
			Category(errors.CategoryJobQueue).
			Context("video_id", job.VideoID).
			Build()
	}

	select {
	case m.jobs <- job:
		return nil
	default:
		// Queue is full, the job never gets a worker.
		return errors.Newf("scan queue is full").
			Component("scanner").
			Category(errors.CategoryJobQueue).
			Context("video_id", job.VideoID).
			Build()
	}
}

// GetStatus returns the current state of the job. It never mutates anything.
func (m *Manager) GetStatus(scanID string) (*datastore.ScanJob, error) {
	return m.store.GetScanJob(scanID)
}

// Results returns the per-comment results of a completed scan. Results of
// pending, processing, or failed scans are not visible.
func (m *Manager) Results(scanID string) (*datastore.ScanJob, []datastore.ScanResultRecord, error) {
	job, err := m.store.GetScanJob(scanID)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != datastore.StatusCompleted {
		return nil, nil, errors.Newf("scan %s is %s, results are available once completed", scanID, job.Status).
			Component("scanner").
			Category(errors.CategoryState).
			Context("scan_id", scanID).
			Context("status", job.Status).
			Build()
	}

	results, err := m.store.GetScanResults(scanID)
	if err != nil {
		return nil, nil, err
	}
	return job, results, nil
}

// Delete removes a scan job together with its results. Validation feedback
// already consumed by training is kept.
func (m *Manager) Delete(scanID string) error {
	return m.store.DeleteScanJob(scanID)
}

// CleanupOlderThan deletes scans whose creation predates the retention window
// and returns how many were removed.
func (m *Manager) CleanupOlderThan(retention time.Duration) (int, error) {
	cutoff := m.clk.Now().Add(-retention)
	old, err := m.store.ListScanJobsOlderThan(cutoff)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i := range old {
		if err := m.store.DeleteScanJob(old[i].ID); err != nil {
			m.logger.Error("cleanup failed for scan", "scan_id", old[i].ID, "error", err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		m.logger.Info("old scans cleaned up", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for job := range m.jobs {
		if ctx.Err() != nil {
			return
		}
		m.process(ctx, job)
	}
}

// process drives one job through up to MaxAttempts attempts. Only transient
// upstream errors are retried; everything else fails the job immediately.
func (m *Manager) process(ctx context.Context, job *datastore.ScanJob) {
	started := m.clk.Now()

	var lastErr error
	for attempt := 0; attempt < m.settings.MaxAttempts; attempt++ {
		if attempt > 0 {
			m.metrics.ScanRetried()
			delay := m.backoff(attempt)
			m.logger.Warn("retrying scan after transient error",
				"scan_id", job.ID, "attempt", attempt+1, "delay", delay, "error", lastErr)
			m.clk.Sleep(delay)
		}

		total, err := m.attempt(ctx, job)
		if err == nil {
			m.metrics.ScanCompleted(m.clk.Now().Sub(started).Seconds(), total)
			m.logger.Info("scan completed", "scan_id", job.ID, "video_id", job.VideoID, "total_comments", total)
			return
		}

		lastErr = err
		if !errors.IsRetryable(err) {
			break
		}
	}

	if err := m.store.FailScanJob(job.ID, lastErr.Error()); err != nil {
		m.logger.Error("failed to record scan failure", "scan_id", job.ID, "error", err)
	}
	m.metrics.ScanFailed()
	m.logger.Error("scan failed permanently", "scan_id", job.ID, "video_id", job.VideoID, "error", lastErr)
}

// attempt runs one full fetch-classify-persist pass for the job.
func (m *Manager) attempt(ctx context.Context, job *datastore.ScanJob) (int, error) {
	if err := m.store.UpdateScanJobStatus(job.ID, datastore.StatusProcessing); err != nil {
		return 0, err
	}
	// Clear rows left behind by a previous attempt so counts stay consistent.
	if err := m.store.DeleteScanResults(job.ID); err != nil {
		return 0, err
	}

	fetched, err := m.source.FetchAllComments(ctx, job.VideoID)
	if err != nil {
		return 0, err
	}

	// A video with no comments completes immediately.
	if len(fetched) == 0 {
		return 0, m.store.CompleteScanJob(job.ID, 0, 0, 0, m.clk.Now())
	}

	predictions, gambling, err := m.classify(ctx, job.ID, fetched)
	if err != nil {
		return 0, err
	}

	records := make([]datastore.ScanResultRecord, len(fetched))
	for i, c := range fetched {
		records[i] = datastore.ScanResultRecord{
			ID:           uuid.New().String(),
			ScanJobID:    job.ID,
			CommentID:    c.ID,
			CommentText:  c.Text,
			AuthorName:   c.AuthorName,
			AuthorAvatar: c.AuthorAvatar,
			IsGambling:   predictions[i].IsGambling,
			Confidence:   predictions[i].Confidence,
		}
	}
	if err := m.store.SaveScanResults(job.ID, records); err != nil {
		return 0, err
	}

	total := len(fetched)
	if err := m.store.CompleteScanJob(job.ID, total, gambling, total-gambling, m.clk.Now()); err != nil {
		return 0, err
	}
	return total, nil
}

// classify runs batched predictions concurrently and reports progress counts
// to the store as batches finish.
func (m *Manager) classify(ctx context.Context, scanID string, fetched []comments.Comment) ([]engine.Prediction, int, error) {
	texts := make([]string, len(fetched))
	for i, c := range fetched {
		texts[i] = c.Text
	}

	batchSize := m.settings.BatchSize
	if batchSize < 1 {
		batchSize = len(texts)
	}

	predictions := make([]engine.Prediction, len(texts))

	var mu sync.Mutex
	classified, gambling := 0, 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)

	for start := 0; start < len(texts); start += batchSize {
		start := start
		end := min(start+batchSize, len(texts))
		g.Go(func() error {
			batch, err := m.predictor.PredictBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(predictions[start:end], batch)

			mu.Lock()
			classified += len(batch)
			for _, p := range batch {
				if p.IsGambling {
					gambling++
				}
			}
			total, found := classified, gambling
			mu.Unlock()

			// Progress counts are advisory until the job completes.
			if err := m.store.UpdateScanJobProgress(scanID, total, found, total-found); err != nil {
				m.logger.Warn("progress update failed", "scan_id", scanID, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return predictions, gambling, nil
}

// backoff returns the delay before the given retry attempt, doubling from the
// base and capped at the configured maximum.
func (m *Manager) backoff(attempt int) time.Duration {
	delay := m.settings.RetryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= m.settings.RetryMaxDelay {
			return m.settings.RetryMaxDelay
		}
	}
	if delay > m.settings.RetryMaxDelay {
		delay = m.settings.RetryMaxDelay
	}
	return delay
}
