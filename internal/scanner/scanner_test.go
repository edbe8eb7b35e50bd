package scanner

import (
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/aldirahman/judolscan/internal/clock"
	"github.com/aldirahman/judolscan/internal/comments"
	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/datastore"
	"github.com/aldirahman/judolscan/internal/engine"
	"github.com/aldirahman/judolscan/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

// fakeSource serves a fixed comment list, optionally failing the first N
// fetches.
type fakeSource struct {
	comments []comments.Comment
	failures atomic.Int32
	failErr  func(videoID string) error
	fetchCnt atomic.Int32
}

func (s *fakeSource) FetchAllComments(_ context.Context, videoID string) ([]comments.Comment, error) {
	s.fetchCnt.Add(1)
	if s.failures.Load() > 0 {
		s.failures.Add(-1)
		return nil, s.failErr(videoID)
	}
	return s.comments, nil
}

// fakePredictor labels any comment containing "gacor" as gambling.
type fakePredictor struct{}

func (fakePredictor) Predict(_ context.Context, text string) (engine.Prediction, error) {
	if strings.Contains(text, "gacor") {
		return engine.Prediction{IsGambling: true, Confidence: 0.95}, nil
	}
	return engine.Prediction{IsGambling: false, Confidence: 0.1}, nil
}

func (p fakePredictor) PredictBatch(ctx context.Context, texts []string) ([]engine.Prediction, error) {
	out := make([]engine.Prediction, len(texts))
	for i, text := range texts {
		out[i], _ = p.Predict(ctx, text)
	}
	return out, nil
}

func newTestStore(t *testing.T) datastore.Interface {
	t.Helper()

	settings := conf.Default()
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	store := datastore.New(settings)
	require.NotNil(t, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSettings() conf.ScannerSettings {
	return conf.ScannerSettings{
		Workers:        2,
		QueueSize:      8,
		MaxAttempts:    3,
		RetryBaseDelay: time.Second,
		RetryMaxDelay:  5 * time.Second,
		BatchSize:      2,
		RetentionDays:  30,
	}
}

func newManager(t *testing.T, store datastore.Interface, source comments.Source) *Manager {
	t.Helper()
	mgr := New(store, source, fakePredictor{}, clock.NewMock(time.Now()), testSettings(), nil)
	mgr.Start()
	t.Cleanup(mgr.Stop)
	return mgr
}

func waitTerminal(t *testing.T, mgr *Manager, scanID string) *datastore.ScanJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := mgr.GetStatus(scanID)
		require.NoError(t, err)
		if job.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("scan did not reach a terminal state")
	return nil
}

func sampleComments() []comments.Comment {
	return []comments.Comment{
		{ID: "c1", Text: "daftar gacor77 maxwin", AuthorName: "spammer"},
		{ID: "c2", Text: "nice video", AuthorName: "viewer"},
		{ID: "c3", Text: "slot gacor terpercaya", AuthorName: "bot"},
		{ID: "c4", Text: "thanks for sharing", AuthorName: "viewer"},
		{ID: "c5", Text: "gacor banget min", AuthorName: "bot"},
	}
}

func TestScanCompletesWithConsistentCounts(t *testing.T) {
	store := newTestStore(t)
	mgr := newManager(t, store, &fakeSource{comments: sampleComments()})

	job, err := mgr.StartScan("video-1")
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusPending, job.Status)

	done := waitTerminal(t, mgr, job.ID)
	assert.Equal(t, datastore.StatusCompleted, done.Status)
	assert.Equal(t, 5, done.TotalComments)
	assert.Equal(t, 3, done.GamblingCount)
	assert.Equal(t, 2, done.CleanCount)
	assert.Equal(t, done.TotalComments, done.GamblingCount+done.CleanCount)
	assert.NotNil(t, done.ScannedAt)

	_, results, err := mgr.Results(job.ID)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestZeroCommentScanCompletesImmediately(t *testing.T) {
	store := newTestStore(t)
	mgr := newManager(t, store, &fakeSource{})

	job, err := mgr.StartScan("empty-video")
	require.NoError(t, err)

	done := waitTerminal(t, mgr, job.ID)
	assert.Equal(t, datastore.StatusCompleted, done.Status)
	assert.Equal(t, 0, done.TotalComments)
	assert.Equal(t, 0, done.GamblingCount)
	assert.Equal(t, 0, done.CleanCount)
}

func TestQuotaErrorIsRetried(t *testing.T) {
	store := newTestStore(t)
	source := &fakeSource{
		comments: sampleComments(),
		failErr: func(videoID string) error {
			return comments.QuotaError(errors.NewStd("quota exceeded"), videoID)
		},
	}
	source.failures.Store(2)
	mgr := newManager(t, store, source)

	job, err := mgr.StartScan("video-1")
	require.NoError(t, err)

	done := waitTerminal(t, mgr, job.ID)
	assert.Equal(t, datastore.StatusCompleted, done.Status)
	assert.EqualValues(t, 3, source.fetchCnt.Load())

	// The retried attempts must not duplicate result rows.
	count, err := store.CountScanResults(job.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)
}

func TestQuotaErrorFailsAfterMaxAttempts(t *testing.T) {
	store := newTestStore(t)
	source := &fakeSource{
		comments: sampleComments(),
		failErr: func(videoID string) error {
			return comments.QuotaError(errors.NewStd("quota exceeded"), videoID)
		},
	}
	source.failures.Store(10)
	mgr := newManager(t, store, source)

	job, err := mgr.StartScan("video-1")
	require.NoError(t, err)

	done := waitTerminal(t, mgr, job.ID)
	assert.Equal(t, datastore.StatusFailed, done.Status)
	assert.Contains(t, done.ErrorMessage, "quota")
	assert.EqualValues(t, 3, source.fetchCnt.Load())
}

func TestPermissionErrorFailsWithoutRetry(t *testing.T) {
	store := newTestStore(t)
	source := &fakeSource{
		comments: sampleComments(),
		failErr: func(videoID string) error {
			return comments.PermissionError(errors.NewStd("comments disabled"), videoID)
		},
	}
	source.failures.Store(10)
	mgr := newManager(t, store, source)

	job, err := mgr.StartScan("video-1")
	require.NoError(t, err)

	done := waitTerminal(t, mgr, job.ID)
	assert.Equal(t, datastore.StatusFailed, done.Status)
	assert.EqualValues(t, 1, source.fetchCnt.Load())
}

func TestResultsHiddenUntilCompleted(t *testing.T) {
	store := newTestStore(t)

	// A manager that never starts workers leaves the job pending.
	mgr := New(store, &fakeSource{comments: sampleComments()}, fakePredictor{}, clock.NewMock(time.Now()), testSettings(), nil)

	job, err := mgr.StartScan("video-1")
	require.NoError(t, err)

	_, _, err = mgr.Results(job.ID)
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
}

func TestResultsOfFailedScanHidden(t *testing.T) {
	store := newTestStore(t)
	source := &fakeSource{
		failErr: func(videoID string) error {
			return comments.PermissionError(errors.NewStd("comments disabled"), videoID)
		},
	}
	source.failures.Store(10)
	mgr := newManager(t, store, source)

	job, err := mgr.StartScan("video-1")
	require.NoError(t, err)
	waitTerminal(t, mgr, job.ID)

	_, _, err = mgr.Results(job.ID)
	assert.True(t, errors.IsCategory(err, errors.CategoryState))
}

func TestStartScanEmptyVideoID(t *testing.T) {
	store := newTestStore(t)
	mgr := newManager(t, store, &fakeSource{})

	_, err := mgr.StartScan("")
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestStartScanQueueFull(t *testing.T) {
	store := newTestStore(t)

	settings := testSettings()
	settings.QueueSize = 1
	// No workers started, the queue can only absorb one job.
	mgr := New(store, &fakeSource{}, fakePredictor{}, clock.NewMock(time.Now()), settings, nil)

	first, err := mgr.StartScan("video-1")
	require.NoError(t, err)

	_, err = mgr.StartScan("video-2")
	assert.True(t, errors.IsCategory(err, errors.CategoryJobQueue))

	// The rejected job is recorded as failed, the queued one stays pending.
	pending, err := mgr.GetStatus(first.ID)
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusPending, pending.Status)
}

func TestStartScanAfterStop(t *testing.T) {
	store := newTestStore(t)
	mgr := New(store, &fakeSource{}, fakePredictor{}, clock.NewMock(time.Now()), testSettings(), nil)
	mgr.Start()
	mgr.Stop()

	job, err := mgr.StartScan("video-1")
	assert.Nil(t, job)
	assert.True(t, errors.IsCategory(err, errors.CategoryJobQueue))
}

func TestCleanupOlderThan(t *testing.T) {
	store := newTestStore(t)
	mgr := newManager(t, store, &fakeSource{comments: sampleComments()})

	job, err := mgr.StartScan("video-1")
	require.NoError(t, err)
	waitTerminal(t, mgr, job.ID)

	// Nothing is old enough yet.
	deleted, err := mgr.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)

	deleted, err = mgr.CleanupOlderThan(-time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = mgr.GetStatus(job.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteScan(t *testing.T) {
	store := newTestStore(t)
	mgr := newManager(t, store, &fakeSource{comments: sampleComments()})

	job, err := mgr.StartScan("video-1")
	require.NoError(t, err)
	waitTerminal(t, mgr, job.ID)

	require.NoError(t, mgr.Delete(job.ID))
	_, err = mgr.GetStatus(job.ID)
	assert.True(t, errors.IsNotFound(err))
}
