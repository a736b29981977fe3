package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/yourusername/streamline-go/internal/domain"
	"github.com/yourusername/streamline-go/pkg/logger"
)

// JobManager runs submitted jobs on their own goroutines and reports their outcome to the session
type JobManager struct {
	runner      *JobRunner
	store       domain.ArtifactStore
	history     domain.JobHistoryRepository
	logger      *zap.Logger
	multiLogger *logger.MultiLogger
	wg          sync.WaitGroup
	active      int64
}

// NewJobManager creates a new job manager
func NewJobManager(
	runner *JobRunner,
	store domain.ArtifactStore,
	history domain.JobHistoryRepository,
	logger *zap.Logger,
	multiLogger *logger.MultiLogger,
) *JobManager {
	return &JobManager{
		runner:      runner,
		store:       store,
		history:     history,
		logger:      logger,
		multiLogger: multiLogger,
	}
}

// Submit validates the job and starts it in the background
func (m *JobManager) Submit(session *Session, job *domain.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if err := session.Context().Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(session.Context())
	session.track(job.ID, cancel)

	record := domain.NewJobRecord(job)
	if err := m.history.Create(record); err != nil {
		m.logger.Warn("Failed to record job", zap.String("job_id", job.ID), zap.Error(err))
	}

	if m.multiLogger != nil {
		m.multiLogger.LogJobEvent("job_submitted",
			zap.String("job_id", job.ID),
			zap.String("session_id", session.ID()),
			zap.String("kind", string(job.Kind)),
			zap.String("url", job.URL))
	}

	m.wg.Add(1)
	atomic.AddInt64(&m.active, 1)
	go func() {
		defer m.wg.Done()
		defer atomic.AddInt64(&m.active, -1)
		defer session.untrack(job.ID)
		defer cancel()

		m.run(ctx, session, job, record)
	}()

	return nil
}

// Cancel cancels every running job of the session
func (m *JobManager) Cancel(session *Session) int {
	n := session.CancelJobs()
	m.logger.Info("Cancelling session jobs",
		zap.String("session_id", session.ID()),
		zap.Int("jobs", n))
	return n
}

// ActiveJobs returns the number of jobs currently running or waiting for a slot
func (m *JobManager) ActiveJobs() int64 {
	return atomic.LoadInt64(&m.active)
}

// Wait blocks until every job has finished or ctx is done
func (m *JobManager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type jobResult struct {
	artifact *domain.Artifact
	captions *domain.CaptionsListData
	err      error
	panicked bool
}

func (m *JobManager) run(ctx context.Context, session *Session, job *domain.Job, record *domain.JobRecord) {
	result := m.execute(ctx, session, job)

	if result.err != nil {
		m.fail(session, job, record, result)
		return
	}

	var event domain.Event
	artifactName := ""
	if job.ProducesArtifact() {
		artifactName = result.artifact.Name
		event = domain.Event{
			Name: domain.ReadyEvent(job.Kind),
			Data: domain.FileReadyData{FileURL: result.artifact.FileURL()},
		}
	} else {
		event = domain.Event{Name: domain.EventCaptionsList, Data: result.captions}
	}

	if err := session.Send(event); err != nil {
		// Nobody is left to pull the artifact
		if result.artifact != nil {
			m.store.Discard(result.artifact.Path)
		}
		record.Finish(domain.JobCancelled, "", "session closed before delivery")
		m.saveRecord(record)
		return
	}

	record.Finish(domain.JobCompleted, artifactName, "")
	m.saveRecord(record)

	m.logger.Info("Job completed",
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("artifact", artifactName))
	if m.multiLogger != nil {
		m.multiLogger.LogJobEvent("job_completed",
			zap.String("job_id", job.ID),
			zap.String("session_id", session.ID()),
			zap.String("kind", string(job.Kind)),
			zap.String("artifact", artifactName))
	}
}

// execute runs the job body once a session slot is free; panics become failures
func (m *JobManager) execute(ctx context.Context, session *Session, job *domain.Job) (result jobResult) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Job panicked",
				zap.String("job_id", job.ID),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			if m.multiLogger != nil {
				m.multiLogger.LogAppError("job_panic",
					zap.String("job_id", job.ID),
					zap.Any("panic", r))
			}
			result = jobResult{err: fmt.Errorf("internal error while processing %s job", job.Kind), panicked: true}
		}
	}()

	if err := session.acquire(ctx); err != nil {
		return jobResult{err: err}
	}
	defer session.release()

	switch job.Kind {
	case domain.KindVideo:
		result.artifact, result.err = m.runner.RunVideo(ctx, job.URL, session)
	case domain.KindAudio:
		result.artifact, result.err = m.runner.RunAudio(ctx, job.URL, session)
	case domain.KindPlaylist:
		result.artifact, result.err = m.runner.RunPlaylist(ctx, job.URL, session)
	case domain.KindCaptionsList:
		result.captions, result.err = m.runner.ListCaptions(ctx, job.URL)
	case domain.KindCaptionDownload:
		result.artifact, result.err = m.runner.DownloadCaption(ctx, job.URL, job.Option, session)
	default:
		result.err = fmt.Errorf("%w: unknown job kind %q", domain.ErrInvalidRequest, job.Kind)
	}
	return result
}

func (m *JobManager) fail(session *Session, job *domain.Job, record *domain.JobRecord, result jobResult) {
	kind := domain.KindOf(result.err)
	status := domain.JobFailed
	if kind == domain.KindCancelled {
		status = domain.JobCancelled
	}
	message := domain.UserMessage(result.err)

	if session.Context().Err() == nil {
		if err := session.Send(domain.NewErrorEvent(message)); err != nil {
			m.logger.Debug("Session closed before error event", zap.String("job_id", job.ID))
		}
	}

	record.Finish(status, "", message)
	m.saveRecord(record)

	fields := []zap.Field{
		zap.String("job_id", job.ID),
		zap.String("session_id", session.ID()),
		zap.String("kind", string(job.Kind)),
		zap.String("error_kind", string(kind)),
		zap.Error(result.err),
	}
	if status == domain.JobCancelled {
		m.logger.Info("Job cancelled", fields...)
	} else {
		m.logger.Warn("Job failed", fields...)
	}
	if m.multiLogger != nil {
		m.multiLogger.LogJobEvent("job_"+string(status), fields...)
		if status == domain.JobFailed && (kind == domain.KindIOError || result.panicked) {
			m.multiLogger.LogAppError("Failed to process job", fields...)
		}
	}
}

func (m *JobManager) saveRecord(record *domain.JobRecord) {
	if err := m.history.Update(record); err != nil {
		m.logger.Warn("Failed to update job record", zap.String("job_id", record.ID), zap.Error(err))
	}
}
