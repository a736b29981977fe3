package domain

import "time"

// JobRecord is the persisted summary of a job outcome
type JobRecord struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	SessionID    string     `gorm:"index" json:"session_id"`
	Kind         JobKind    `gorm:"index" json:"kind"`
	URL          string     `json:"url"`
	Option       string     `json:"option,omitempty"`
	Status       JobStatus  `gorm:"index" json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ArtifactName string     `gorm:"index" json:"artifact_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
}

// NewJobRecord builds a running record for a job
func NewJobRecord(job *Job) *JobRecord {
	return &JobRecord{
		ID:        job.ID,
		SessionID: job.SessionID,
		Kind:      job.Kind,
		URL:       job.URL,
		Option:    job.Option,
		Status:    JobRunning,
		CreatedAt: job.CreatedAt,
	}
}

// Finish stamps the terminal status of the record
func (r *JobRecord) Finish(status JobStatus, artifactName, errMsg string) {
	now := time.Now()
	r.Status = status
	r.ArtifactName = artifactName
	r.ErrorMessage = errMsg
	r.FinishedAt = &now
}

// JobHistoryRepository defines the interface for job history persistence
type JobHistoryRepository interface {
	// Create stores a new record
	Create(record *JobRecord) error

	// Update saves an existing record
	Update(record *JobRecord) error

	// MarkDelivered stamps the delivery time of the record owning the artifact
	MarkDelivered(artifactName string) error

	// FindRecent returns the newest records first
	FindRecent(limit int) ([]*JobRecord, error)

	// GetStats returns job statistics
	GetStats() (*JobStats, error)
}

// JobStats represents job history statistics
type JobStats struct {
	Total     int64 `json:"total"`
	Running   int64 `json:"running"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
	Delivered int64 `json:"delivered"`
}
