package datastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/errors"
)

// newTestStore opens a throwaway SQLite store in a temp directory.
func newTestStore(t *testing.T) Interface {
	t.Helper()

	settings := conf.Default()
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	store := New(settings)
	require.NotNil(t, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// seedScan creates a completed scan job with one result per given comment.
func seedScan(t *testing.T, store Interface, comments ...string) (*ScanJob, []ScanResultRecord) {
	t.Helper()

	job := &ScanJob{
		ID:      uuid.New().String(),
		VideoID: "video-1",
		Status:  StatusPending,
	}
	require.NoError(t, store.SaveScanJob(job))

	results := make([]ScanResultRecord, len(comments))
	for i, text := range comments {
		results[i] = ScanResultRecord{
			ID:          uuid.New().String(),
			CommentID:   uuid.New().String(),
			CommentText: text,
			IsGambling:  true,
			Confidence:  0.9,
		}
	}
	require.NoError(t, store.SaveScanResults(job.ID, results))
	require.NoError(t, store.CompleteScanJob(job.ID, len(results), len(results), 0, time.Now()))
	return job, results
}

func seedValidation(t *testing.T, store Interface, resultID, userID string) *ValidationFeedback {
	t.Helper()
	v, err := store.UpsertValidation(&ValidationFeedback{
		ScanResultID:       resultID,
		UserID:             userID,
		CommentText:        "daftar gacor77 sekarang",
		OriginalPrediction: true,
		OriginalConfidence: 0.9,
		CorrectedLabel:     true,
		ValidatedAt:        time.Now(),
	})
	require.NoError(t, err)
	return v
}

func TestCompleteScanJobWritesCountsAtomically(t *testing.T) {
	store := newTestStore(t)
	job, _ := seedScan(t, store, "a", "b", "c")

	got, err := store.GetScanJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, got.TotalComments, got.GamblingCount+got.CleanCount)
	assert.NotNil(t, got.ScannedAt)
}

func TestUpdateScanJobMissingJob(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateScanJobStatus("missing", StatusProcessing)
	assert.True(t, errors.IsNotFound(err))
}

func TestUpsertValidationOverwritesInPlace(t *testing.T) {
	store := newTestStore(t)
	_, results := seedScan(t, store, "spam comment")

	first := seedValidation(t, store, results[0].ID, "user-1")

	second, err := store.UpsertValidation(&ValidationFeedback{
		ScanResultID:       results[0].ID,
		UserID:             "user-1",
		CommentText:        "spam comment",
		OriginalPrediction: true,
		OriginalConfidence: 0.9,
		CorrectedLabel:     false,
		IsCorrection:       true,
		ValidatedAt:        time.Now().Add(time.Minute),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.CorrectedLabel)
	assert.True(t, second.IsCorrection)

	count, err := store.CountValidations("user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestUpsertValidationResetsUsedFlag(t *testing.T) {
	store := newTestStore(t)
	_, results := seedScan(t, store, "spam comment")
	v := seedValidation(t, store, results[0].ID, "user-1")

	mv := &ModelVersion{ID: uuid.New().String(), Version: "v1", FilePath: "m.json"}
	require.NoError(t, store.SaveModelVersion(mv))
	require.NoError(t, store.ActivateModelVersion(mv.ID, []string{v.ID}, time.Now()))

	pending, err := store.CountPendingValidations()
	require.NoError(t, err)
	assert.EqualValues(t, 0, pending)

	// A changed opinion re-enters the pending pool.
	_, err = store.UpsertValidation(&ValidationFeedback{
		ScanResultID:   results[0].ID,
		UserID:         "user-1",
		CommentText:    "spam comment",
		CorrectedLabel: false,
		IsCorrection:   true,
		ValidatedAt:    time.Now(),
	})
	require.NoError(t, err)

	pending, err = store.CountPendingValidations()
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)
}

func TestDeleteValidationSkipsUsedRows(t *testing.T) {
	store := newTestStore(t)
	_, results := seedScan(t, store, "spam comment")
	v := seedValidation(t, store, results[0].ID, "user-1")

	mv := &ModelVersion{ID: uuid.New().String(), Version: "v1", FilePath: "m.json"}
	require.NoError(t, store.SaveModelVersion(mv))
	require.NoError(t, store.ActivateModelVersion(mv.ID, []string{v.ID}, time.Now()))

	err := store.DeleteValidation(v.ID)
	assert.True(t, errors.IsNotFound(err))
}

func TestActivateModelVersionKeepsExactlyOneActive(t *testing.T) {
	store := newTestStore(t)

	a := &ModelVersion{ID: uuid.New().String(), Version: "v1", FilePath: "a.json"}
	b := &ModelVersion{ID: uuid.New().String(), Version: "v2", FilePath: "b.json"}
	require.NoError(t, store.SaveModelVersion(a))
	require.NoError(t, store.SaveModelVersion(b))

	require.NoError(t, store.ActivateModelVersion(a.ID, nil, time.Now()))
	require.NoError(t, store.ActivateModelVersion(b.ID, nil, time.Now()))

	active, err := store.GetActiveModelVersion()
	require.NoError(t, err)
	assert.Equal(t, b.ID, active.ID)

	versions, err := store.ListModelVersions(0)
	require.NoError(t, err)
	activeCount := 0
	for i := range versions {
		if versions[i].IsActive {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)

	deactivated, err := store.GetModelVersion(a.ID)
	require.NoError(t, err)
	assert.NotNil(t, deactivated.DeactivatedAt)
}

func TestActivateCurrentVersionIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	a := &ModelVersion{ID: uuid.New().String(), Version: "v1", FilePath: "a.json"}
	require.NoError(t, store.SaveModelVersion(a))
	require.NoError(t, store.ActivateModelVersion(a.ID, nil, time.Now()))
	require.NoError(t, store.ActivateModelVersion(a.ID, nil, time.Now()))

	active, err := store.GetActiveModelVersion()
	require.NoError(t, err)
	assert.Equal(t, a.ID, active.ID)
	assert.True(t, active.IsActive)
	assert.Nil(t, active.DeactivatedAt)
}

func TestActivateMissingVersion(t *testing.T) {
	store := newTestStore(t)
	err := store.ActivateModelVersion("missing", nil, time.Now())
	assert.True(t, errors.IsNotFound(err))
}

func TestDeleteScanJobKeepsUsedFeedback(t *testing.T) {
	store := newTestStore(t)
	job, results := seedScan(t, store, "used comment", "unused comment")

	used := seedValidation(t, store, results[0].ID, "user-1")
	unused := seedValidation(t, store, results[1].ID, "user-1")

	mv := &ModelVersion{ID: uuid.New().String(), Version: "v1", FilePath: "m.json"}
	require.NoError(t, store.SaveModelVersion(mv))
	require.NoError(t, store.ActivateModelVersion(mv.ID, []string{used.ID}, time.Now()))

	require.NoError(t, store.DeleteScanJob(job.ID))

	_, err := store.GetScanJob(job.ID)
	assert.True(t, errors.IsNotFound(err))

	count, err := store.CountScanResults(job.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	// Consumed feedback survives as training history, unused feedback is gone.
	kept, err := store.GetValidation(used.ID, "user-1")
	require.NoError(t, err)
	assert.True(t, kept.UsedInTraining)
	assert.Equal(t, "daftar gacor77 sekarang", kept.CommentText)

	_, err = store.GetValidation(unused.ID, "user-1")
	assert.True(t, errors.IsNotFound(err))
}

func TestRetrainingLockSingleFlight(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	acquired, err := store.AcquireRetrainingLock("owner-a", 30*time.Minute, now)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = store.AcquireRetrainingLock("owner-b", 30*time.Minute, now)
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, store.ReleaseRetrainingLock("owner-a"))

	acquired, err = store.AcquireRetrainingLock("owner-b", 30*time.Minute, now)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestRetrainingLockStaleReclaim(t *testing.T) {
	store := newTestStore(t)
	start := time.Now()

	acquired, err := store.AcquireRetrainingLock("crashed", 30*time.Minute, start)
	require.NoError(t, err)
	require.True(t, acquired)

	// Within the stale window the lock stays held.
	acquired, err = store.AcquireRetrainingLock("fresh", 30*time.Minute, start.Add(10*time.Minute))
	require.NoError(t, err)
	assert.False(t, acquired)

	// After the timeout an abandoned lock is reclaimed.
	acquired, err = store.AcquireRetrainingLock("fresh", 30*time.Minute, start.Add(31*time.Minute))
	require.NoError(t, err)
	assert.True(t, acquired)

	// The crashed owner's late release must not free the reclaimed lock.
	require.NoError(t, store.ReleaseRetrainingLock("crashed"))
	acquired, err = store.AcquireRetrainingLock("third", 30*time.Minute, start.Add(32*time.Minute))
	require.NoError(t, err)
	assert.False(t, acquired)
}

func TestListUnusedValidationsOldestFirst(t *testing.T) {
	store := newTestStore(t)
	_, results := seedScan(t, store, "first", "second")

	base := time.Now()
	_, err := store.UpsertValidation(&ValidationFeedback{
		ScanResultID: results[1].ID, UserID: "u", CommentText: "second",
		CorrectedLabel: true, ValidatedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)
	_, err = store.UpsertValidation(&ValidationFeedback{
		ScanResultID: results[0].ID, UserID: "u", CommentText: "first",
		CorrectedLabel: true, ValidatedAt: base,
	})
	require.NoError(t, err)

	unused, err := store.ListUnusedValidations()
	require.NoError(t, err)
	require.Len(t, unused, 2)
	assert.Equal(t, "first", unused[0].CommentText)
	assert.Equal(t, "second", unused[1].CommentText)
}

func TestListValidationsForScan(t *testing.T) {
	store := newTestStore(t)
	job, results := seedScan(t, store, "a", "b")
	otherJob, otherResults := seedScan(t, store, "c")

	seedValidation(t, store, results[0].ID, "user-1")
	seedValidation(t, store, results[1].ID, "user-2")
	seedValidation(t, store, otherResults[0].ID, "user-1")

	mine, err := store.ListValidationsForScan(job.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, results[0].ID, mine[0].ScanResultID)

	other, err := store.ListValidationsForScan(otherJob.ID, "user-1")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestListScanJobsOlderThan(t *testing.T) {
	store := newTestStore(t)
	job, _ := seedScan(t, store, "a")

	old, err := store.ListScanJobsOlderThan(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, old)

	old, err = store.ListScanJobsOlderThan(time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, old, 1)
	assert.Equal(t, job.ID, old[0].ID)
}
