// modelversion.go: model version persistence and atomic activation
package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/aldirahman/judolscan/internal/errors"
)

// SaveModelVersion inserts a new model version record.
func (ds *DataStore) SaveModelVersion(mv *ModelVersion) error {
	if err := ds.DB.Create(mv).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save-model-version").
			Context("version", mv.Version).
			Build()
	}
	return nil
}

// GetModelVersion retrieves a model version by its ID.
func (ds *DataStore) GetModelVersion(id string) (*ModelVersion, error) {
	var mv ModelVersion
	if err := ds.DB.First(&mv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFoundError("model version", id)
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get-model-version").
			Build()
	}
	return &mv, nil
}

// GetActiveModelVersion retrieves the single active version. An empty
// registry is reported as not-found; the caller decides how to bootstrap.
func (ds *DataStore) GetActiveModelVersion() (*ModelVersion, error) {
	var mv ModelVersion
	if err := ds.DB.Where("is_active = ?", true).First(&mv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf("no active model version").
				Component("datastore").
				Category(errors.CategoryNotFound).
				Build()
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get-active-model-version").
			Build()
	}
	return &mv, nil
}

// ListModelVersions returns recent versions, newest first.
func (ds *DataStore) ListModelVersions(limit int) ([]ModelVersion, error) {
	var versions []ModelVersion
	query := ds.DB.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&versions).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "list-model-versions").
			Build()
	}
	return versions, nil
}

// ActivateModelVersion performs the atomic model swap: in one transaction the
// previously active version is deactivated, the target version is activated,
// and any validation rows consumed by the run are marked used. If any step
// fails the whole swap rolls back and the prior version keeps serving.
func (ds *DataStore) ActivateModelVersion(id string, consumedValidationIDs []string, now time.Time) error {
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		var target ModelVersion
		if err := tx.First(&target, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.NotFoundError("model version", id)
			}
			return err
		}

		// Deactivate whatever is active, excluding the target so a
		// re-activation of the current version stays a no-op.
		if err := tx.Model(&ModelVersion{}).
			Where("is_active = ? AND id <> ?", true, id).
			Updates(map[string]any{
				"is_active":      false,
				"deactivated_at": now,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&ModelVersion{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"is_active":      true,
				"activated_at":   now,
				"deactivated_at": nil,
			}).Error; err != nil {
			return err
		}

		return markValidationsUsed(tx, consumedValidationIDs, id)
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return err
		}
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryActivation).
			Context("operation", "activate-model-version").
			Context("version_id", id).
			Build()
	}
	getLogger().Info("model version activated", "version_id", id, "consumed_validations", len(consumedValidationIDs))
	return nil
}
