// model.go this code defines the data model for the application
package datastore

import "time"

// Scan job status values. Transitions are monotonic: pending -> processing ->
// completed, or pending/processing -> failed. A failed job is never reused, a
// manual retry creates a new job.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ScanJob represents one asynchronous run classifying all comments on a video
type ScanJob struct {
	ID            string `gorm:"type:char(36);primaryKey"`
	VideoID       string `gorm:"size:50;not null;index:idx_scan_jobs_video_id"`
	Status        string `gorm:"size:20;not null;default:pending;index:idx_scan_jobs_status"`
	TotalComments int    `gorm:"not null;default:0"`
	GamblingCount int    `gorm:"not null;default:0"`
	CleanCount    int    `gorm:"not null;default:0"`
	ErrorMessage  string `gorm:"type:text"`
	TaskID        string `gorm:"size:36"` // handle of the worker task that owns this job

	Results []ScanResultRecord `gorm:"foreignKey:ScanJobID;constraint:OnDelete:CASCADE"`

	ScannedAt *time.Time // when the scan reached a terminal state
	CreatedAt time.Time  `gorm:"index"`
}

// Terminal reports whether the job has reached a terminal status.
func (j *ScanJob) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// ScanResultRecord represents one classified comment, owned by the ScanJob
// that produced it. Immutable once written; removed by cascade when the
// owning job is deleted.
type ScanResultRecord struct {
	ID           string  `gorm:"type:char(36);primaryKey"`
	ScanJobID    string  `gorm:"type:char(36);not null;index:idx_scan_results_job_id"`
	CommentID    string  `gorm:"size:255;not null"`
	CommentText  string  `gorm:"type:text"`
	AuthorName   string  `gorm:"size:255"`
	AuthorAvatar string  `gorm:"size:500"`
	IsGambling   bool    `gorm:"not null;index:idx_scan_results_is_gambling"`
	Confidence   float64 `gorm:"not null"`
	CreatedAt    time.Time
}

// ValidationFeedback represents a user's confirmation or correction of one
// prediction. Unique on (scan_result_id, user_id): a resubmission updates the
// existing row, never duplicates it.
type ValidationFeedback struct {
	ID           string `gorm:"type:char(36);primaryKey"`
	ScanResultID string `gorm:"type:char(36);not null;uniqueIndex:idx_validation_result_user"`
	UserID       string `gorm:"type:char(36);not null;uniqueIndex:idx_validation_result_user;index:idx_validation_user_id"`

	// Denormalized copy of the comment so training survives result deletion
	CommentText string `gorm:"type:text;not null"`

	OriginalPrediction bool    `gorm:"not null"`
	OriginalConfidence float64 `gorm:"not null"`

	CorrectedLabel bool `gorm:"not null"`
	IsCorrection   bool `gorm:"not null;index:idx_validation_is_correction"`

	ValidatedAt time.Time `gorm:"not null"`

	UsedInTraining bool    `gorm:"not null;default:false;index:idx_validation_used_in_training"`
	ModelVersionID *string `gorm:"type:char(36)"`
}

// ModelVersion represents one trained artifact plus its metrics and
// activation history. At most one row has IsActive=true at any instant.
type ModelVersion struct {
	ID       string `gorm:"type:char(36);primaryKey"`
	Version  string `gorm:"size:50;uniqueIndex;not null"`
	FilePath string `gorm:"size:500;not null"`

	TrainingSamples   int `gorm:"not null"`
	ValidationSamples int `gorm:"not null;default:0"`

	// Metrics are nil until the version has been evaluated
	Accuracy  *float64
	Precision *float64
	Recall    *float64
	F1        *float64

	IsActive bool `gorm:"not null;default:false;index:idx_model_versions_is_active"`

	CreatedAt     time.Time
	ActivatedAt   *time.Time
	DeactivatedAt *time.Time
}

// RetrainingLock is the persisted single-flight guard for retraining runs.
// A single row (ID=1) is compare-and-swapped to claim the run; a stale
// acquired_at allows reclaiming after a crashed orchestrator.
type RetrainingLock struct {
	ID         uint `gorm:"primaryKey"`
	Locked     bool `gorm:"not null;default:false"`
	Owner      string
	AcquiredAt time.Time
}
