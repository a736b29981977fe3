package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidURL       = errors.New("invalid URL")
	ErrRestricted       = errors.New("video is private, age-restricted or requires login")
	ErrUnavailable      = errors.New("video is unavailable")
	ErrNoStream         = errors.New("no suitable stream available")
	ErrCaptionNotFound  = errors.New("caption track not found")
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrEmptyPlaylist    = errors.New("playlist has no videos")
)

// ErrorKind classifies a job failure
type ErrorKind string

const (
	KindProviderError ErrorKind = "provider"
	KindNotFound      ErrorKind = "not_found"
	KindIOError       ErrorKind = "io"
	KindCancelled     ErrorKind = "cancelled"
	KindInvalid       ErrorKind = "invalid"
)

// JobError is a classified failure returned at the job boundary
type JobError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewJobError wraps err with a kind and the failing operation
func NewJobError(kind ErrorKind, op string, err error) *JobError {
	return &JobError{Kind: kind, Op: op, Err: err}
}

func (e *JobError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err. Unclassified errors are provider errors.
func KindOf(err error) ErrorKind {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Kind
	}
	switch {
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrCaptionNotFound), errors.Is(err, ErrArtifactNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalid
	}
	return KindProviderError
}

// UserMessage renders err as the human-readable text sent in error events
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if KindOf(err) == KindCancelled {
		return "download cancelled"
	}
	return err.Error()
}
