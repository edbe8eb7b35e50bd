// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"log"
	"os"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aldirahman/judolscan/internal/conf"
	"github.com/aldirahman/judolscan/internal/errors"
)

// Interface abstracts the underlying database implementation and defines the
// operations the orchestration core needs from the job store.
type Interface interface {
	Open() error
	Close() error

	// Scan jobs
	SaveScanJob(job *ScanJob) error
	GetScanJob(id string) (*ScanJob, error)
	UpdateScanJobStatus(id, status string) error
	UpdateScanJobProgress(id string, total, gambling, clean int) error
	CompleteScanJob(id string, total, gambling, clean int, scannedAt time.Time) error
	FailScanJob(id, errorMessage string) error
	DeleteScanJob(id string) error
	ListScanJobsOlderThan(cutoff time.Time) ([]ScanJob, error)

	// Scan results
	SaveScanResults(jobID string, results []ScanResultRecord) error
	DeleteScanResults(jobID string) error
	GetScanResults(jobID string) ([]ScanResultRecord, error)
	GetScanResult(id string) (*ScanResultRecord, error)
	CountScanResults(jobID string) (int64, error)

	// Validation feedback
	UpsertValidation(v *ValidationFeedback) (*ValidationFeedback, error)
	GetValidation(id, userID string) (*ValidationFeedback, error)
	DeleteValidation(id string) error
	CountValidations(userID string) (int64, error)
	CountCorrections(userID string) (int64, error)
	CountPendingValidations() (int64, error)
	ListUnusedValidations() ([]ValidationFeedback, error)
	ListValidationsForScan(scanID, userID string) ([]ValidationFeedback, error)

	// Model versions
	SaveModelVersion(mv *ModelVersion) error
	GetModelVersion(id string) (*ModelVersion, error)
	GetActiveModelVersion() (*ModelVersion, error)
	ListModelVersions(limit int) ([]ModelVersion, error)
	ActivateModelVersion(id string, consumedValidationIDs []string, now time.Time) error

	// Retraining single-flight lock
	AcquireRetrainingLock(owner string, staleAfter time.Duration, now time.Time) (bool, error)
	ReleaseRetrainingLock(owner string) error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&ScanJob{}, &ScanResultRecord{}, &ValidationFeedback{}, &ModelVersion{}, &RetrainingLock{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("db_type", dbType).
			Context("operation", "auto-migrate").
			Build()
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)
}
