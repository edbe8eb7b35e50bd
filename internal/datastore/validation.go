// validation.go: validation feedback persistence
package datastore

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldirahman/judolscan/internal/errors"
)

// UpsertValidation writes a validation keyed on (scan_result_id, user_id).
// A second submission for the same pair overwrites the first in place: the
// label fields and validated_at are refreshed and used_in_training is reset,
// so an updated opinion is picked up by the next training run.
func (ds *DataStore) UpsertValidation(v *ValidationFeedback) (*ValidationFeedback, error) {
	var saved ValidationFeedback

	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		var existing ValidationFeedback
		err := tx.Where("scan_result_id = ? AND user_id = ?", v.ScanResultID, v.UserID).
			First(&existing).Error

		switch {
		case err == nil:
			existing.CorrectedLabel = v.CorrectedLabel
			existing.IsCorrection = v.IsCorrection
			existing.ValidatedAt = v.ValidatedAt
			existing.UsedInTraining = false
			existing.ModelVersionID = nil
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			saved = existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			if v.ID == "" {
				v.ID = uuid.New().String()
			}
			if err := tx.Create(v).Error; err != nil {
				return err
			}
			saved = *v
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "upsert-validation").
			Context("scan_result_id", v.ScanResultID).
			Build()
	}
	return &saved, nil
}

// GetValidation retrieves a validation by ID, scoped to its owner.
func (ds *DataStore) GetValidation(id, userID string) (*ValidationFeedback, error) {
	var v ValidationFeedback
	if err := ds.DB.Where("id = ? AND user_id = ?", id, userID).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFoundError("validation", id)
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get-validation").
			Build()
	}
	return &v, nil
}

// DeleteValidation removes a validation row. Rows already consumed by
// training are never deleted.
func (ds *DataStore) DeleteValidation(id string) error {
	res := ds.DB.Where("id = ? AND used_in_training = ?", id, false).Delete(&ValidationFeedback{})
	if res.Error != nil {
		return errors.New(res.Error).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "delete-validation").
			Context("validation_id", id).
			Build()
	}
	if res.RowsAffected == 0 {
		return errors.NotFoundError("validation", id)
	}
	return nil
}

// CountValidations returns the number of validation rows, optionally filtered
// to one user (empty userID counts all).
func (ds *DataStore) CountValidations(userID string) (int64, error) {
	query := ds.DB.Model(&ValidationFeedback{})
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count-validations").
			Build()
	}
	return count, nil
}

// CountCorrections returns the number of validations that corrected the
// original prediction, optionally filtered to one user.
func (ds *DataStore) CountCorrections(userID string) (int64, error) {
	query := ds.DB.Model(&ValidationFeedback{}).Where("is_correction = ?", true)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count-corrections").
			Build()
	}
	return count, nil
}

// CountPendingValidations returns the number of validations not yet consumed
// by a training run. This is the count the retraining threshold is checked
// against.
func (ds *DataStore) CountPendingValidations() (int64, error) {
	var count int64
	err := ds.DB.Model(&ValidationFeedback{}).
		Where("used_in_training = ?", false).
		Count(&count).Error
	if err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count-pending-validations").
			Build()
	}
	return count, nil
}

// ListUnusedValidations returns all validations not yet consumed by training,
// oldest first so later submissions win when deduplicating by comment text.
func (ds *DataStore) ListUnusedValidations() ([]ValidationFeedback, error) {
	var validations []ValidationFeedback
	err := ds.DB.Where("used_in_training = ?", false).
		Order("validated_at ASC").
		Find(&validations).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "list-unused-validations").
			Build()
	}
	return validations, nil
}

// ListValidationsForScan returns a user's validations for all results of one
// scan job.
func (ds *DataStore) ListValidationsForScan(scanID, userID string) ([]ValidationFeedback, error) {
	var validations []ValidationFeedback
	err := ds.DB.
		Joins("JOIN scan_result_records ON scan_result_records.id = validation_feedbacks.scan_result_id").
		Where("scan_result_records.scan_job_id = ? AND validation_feedbacks.user_id = ?", scanID, userID).
		Find(&validations).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "list-validations-for-scan").
			Context("scan_id", scanID).
			Build()
	}
	return validations, nil
}

// MarkValidationsUsed flags the given rows as consumed by the given model
// version. Exposed for the activation transaction; see ActivateModelVersion.
func markValidationsUsed(tx *gorm.DB, ids []string, modelVersionID string) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Model(&ValidationFeedback{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"used_in_training": true,
			"model_version_id": modelVersionID,
		}).Error
}
