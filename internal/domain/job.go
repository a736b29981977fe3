package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobKind identifies the unit of work requested by a client
type JobKind string

const (
	KindVideo           JobKind = "video"
	KindAudio           JobKind = "audio"
	KindPlaylist        JobKind = "playlist"
	KindCaptionsList    JobKind = "captions-list"
	KindCaptionDownload JobKind = "caption-download"
)

// JobStatus represents the outcome of a job as recorded in history
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Job represents one requested download. It lives only as long as its worker.
type Job struct {
	ID        string
	Kind      JobKind
	URL       string
	Option    string // caption language code for KindCaptionDownload
	SessionID string
	CreatedAt time.Time
}

// NewJob creates a new job for a session
func NewJob(kind JobKind, sourceURL, option, sessionID string) *Job {
	return &Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		URL:       strings.TrimSpace(sourceURL),
		Option:    strings.TrimSpace(option),
		SessionID: sessionID,
		CreatedAt: time.Now(),
	}
}

// Validate checks that the job carries everything its kind needs
func (j *Job) Validate() error {
	if !ValidateKind(j.Kind) {
		return fmt.Errorf("%w: unknown job kind %q", ErrInvalidRequest, j.Kind)
	}
	if err := ValidateSourceURL(j.URL); err != nil {
		return err
	}
	if j.Kind == KindCaptionDownload && j.Option == "" {
		return fmt.Errorf("%w: caption code is required", ErrInvalidRequest)
	}
	return nil
}

// ProducesArtifact reports whether the job ends with a downloadable file
func (j *Job) ProducesArtifact() bool {
	return j.Kind != KindCaptionsList
}

// ValidateKind checks if a job kind is known
func ValidateKind(kind JobKind) bool {
	switch kind {
	case KindVideo, KindAudio, KindPlaylist, KindCaptionsList, KindCaptionDownload:
		return true
	}
	return false
}

// ValidateSourceURL rejects empty and non-http(s) URLs before they reach the provider
func ValidateSourceURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidURL)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
