// scan.go: scan job and scan result persistence
package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/aldirahman/judolscan/internal/errors"
)

// SaveScanJob inserts a new scan job record.
func (ds *DataStore) SaveScanJob(job *ScanJob) error {
	if err := ds.DB.Create(job).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save-scan-job").
			Context("job_id", job.ID).
			Build()
	}
	return nil
}

// GetScanJob retrieves a scan job by its ID.
func (ds *DataStore) GetScanJob(id string) (*ScanJob, error) {
	var job ScanJob
	if err := ds.DB.First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFoundError("scan job", id)
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get-scan-job").
			Build()
	}
	return &job, nil
}

// UpdateScanJobStatus sets the status of a scan job.
func (ds *DataStore) UpdateScanJobStatus(id, status string) error {
	return ds.updateScanJob(id, map[string]any{"status": status})
}

// UpdateScanJobProgress records running counts while a job is processing.
// Progress writes are advisory; only the terminal write carries the
// completion guarantee.
func (ds *DataStore) UpdateScanJobProgress(id string, total, gambling, clean int) error {
	return ds.updateScanJob(id, map[string]any{
		"total_comments": total,
		"gambling_count": gambling,
		"clean_count":    clean,
	})
}

// CompleteScanJob atomically sets the terminal completed status together with
// the final counts, so readers never observe a completed job with stale counts.
func (ds *DataStore) CompleteScanJob(id string, total, gambling, clean int, scannedAt time.Time) error {
	return ds.updateScanJob(id, map[string]any{
		"status":         StatusCompleted,
		"total_comments": total,
		"gambling_count": gambling,
		"clean_count":    clean,
		"scanned_at":     scannedAt,
	})
}

// FailScanJob marks a job permanently failed with the given error message.
func (ds *DataStore) FailScanJob(id, errorMessage string) error {
	now := time.Now().UTC()
	return ds.updateScanJob(id, map[string]any{
		"status":        StatusFailed,
		"error_message": errorMessage,
		"scanned_at":    now,
	})
}

func (ds *DataStore) updateScanJob(id string, fields map[string]any) error {
	res := ds.DB.Model(&ScanJob{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return errors.New(res.Error).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "update-scan-job").
			Context("job_id", id).
			Build()
	}
	if res.RowsAffected == 0 {
		return errors.NotFoundError("scan job", id)
	}
	return nil
}

// DeleteScanJob removes a scan job, its results, and any validation feedback
// for those results that has not yet been consumed by training. Feedback
// already marked used is kept as training history; its comment text is
// denormalized so it survives the cascade.
func (ds *DataStore) DeleteScanJob(id string) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		resultIDs := tx.Model(&ScanResultRecord{}).Select("id").Where("scan_job_id = ?", id)

		if err := tx.Where("scan_result_id IN (?) AND used_in_training = ?", resultIDs, false).
			Delete(&ValidationFeedback{}).Error; err != nil {
			return err
		}
		if err := tx.Where("scan_job_id = ?", id).Delete(&ScanResultRecord{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&ScanJob{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.NotFoundError("scan job", id)
		}
		getLogger().Info("scan job deleted", "job_id", id)
		return nil
	})
}

// ListScanJobsOlderThan returns jobs created before the cutoff, oldest first.
func (ds *DataStore) ListScanJobsOlderThan(cutoff time.Time) ([]ScanJob, error) {
	var jobs []ScanJob
	if err := ds.DB.Where("created_at < ?", cutoff).Order("created_at ASC").Find(&jobs).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "list-old-scan-jobs").
			Build()
	}
	return jobs, nil
}

// SaveScanResults stores a batch of classified comments for a job in a single
// transaction.
func (ds *DataStore) SaveScanResults(jobID string, results []ScanResultRecord) error {
	if len(results) == 0 {
		return nil
	}
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		for i := range results {
			results[i].ScanJobID = jobID
			if err := tx.Create(&results[i]).Error; err != nil {
				return errors.New(err).
					Component("datastore").
					Category(errors.CategoryDatabase).
					Context("operation", "save-scan-results").
					Context("job_id", jobID).
					Build()
			}
		}
		return nil
	})
}

// DeleteScanResults removes all results for a job. Used when a failed attempt
// is retried from scratch so the rerun cannot duplicate rows.
func (ds *DataStore) DeleteScanResults(jobID string) error {
	if err := ds.DB.Where("scan_job_id = ?", jobID).Delete(&ScanResultRecord{}).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "delete-scan-results").
			Context("job_id", jobID).
			Build()
	}
	return nil
}

// GetScanResults retrieves all results for a job in insertion order.
func (ds *DataStore) GetScanResults(jobID string) ([]ScanResultRecord, error) {
	var results []ScanResultRecord
	if err := ds.DB.Where("scan_job_id = ?", jobID).Order("created_at ASC").Find(&results).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get-scan-results").
			Context("job_id", jobID).
			Build()
	}
	return results, nil
}

// GetScanResult retrieves a single scan result by its ID.
func (ds *DataStore) GetScanResult(id string) (*ScanResultRecord, error) {
	var result ScanResultRecord
	if err := ds.DB.First(&result, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFoundError("scan result", id)
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get-scan-result").
			Build()
	}
	return &result, nil
}

// CountScanResults returns the number of stored results for a job.
func (ds *DataStore) CountScanResults(jobID string) (int64, error) {
	var count int64
	if err := ds.DB.Model(&ScanResultRecord{}).Where("scan_job_id = ?", jobID).Count(&count).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count-scan-results").
			Build()
	}
	return count, nil
}
