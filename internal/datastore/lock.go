// lock.go: persisted single-flight guard for retraining runs
package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/aldirahman/judolscan/internal/errors"
)

// retrainingLockID is the fixed row id of the singleton lock record.
const retrainingLockID = 1

// AcquireRetrainingLock attempts to claim the persisted retraining lock via
// compare-and-swap. It returns true when this caller now holds the lock. A
// lock held longer than staleAfter is treated as abandoned by a crashed
// orchestrator and may be reclaimed.
func (ds *DataStore) AcquireRetrainingLock(owner string, staleAfter time.Duration, now time.Time) (bool, error) {
	acquired := false

	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		var lock RetrainingLock
		err := tx.First(&lock, "id = ?", retrainingLockID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			lock = RetrainingLock{ID: retrainingLockID}
			if err := tx.Create(&lock).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		staleBefore := now.Add(-staleAfter)

		// CAS: only the row matching the unlocked-or-stale predicate flips.
		res := tx.Model(&RetrainingLock{}).
			Where("id = ? AND (locked = ? OR acquired_at < ?)", retrainingLockID, false, staleBefore).
			Updates(map[string]any{
				"locked":      true,
				"owner":       owner,
				"acquired_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		acquired = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, errors.New(err).
			Component("datastore").
			Category(errors.CategoryThreshold).
			Context("operation", "acquire-retraining-lock").
			Build()
	}
	return acquired, nil
}

// ReleaseRetrainingLock releases the lock if the given owner still holds it.
// Releasing a lock reclaimed by someone else is a no-op, so a slow crashed
// run cannot clobber its successor.
func (ds *DataStore) ReleaseRetrainingLock(owner string) error {
	err := ds.DB.Model(&RetrainingLock{}).
		Where("id = ? AND owner = ?", retrainingLockID, owner).
		Update("locked", false).Error
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryThreshold).
			Context("operation", "release-retraining-lock").
			Build()
	}
	return nil
}
