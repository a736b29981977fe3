package app

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/yourusername/streamline-go/internal/domain"
	"golang.org/x/time/rate"
)

// EventSink receives the outbound events of a job
type EventSink interface {
	// Send enqueues a lifecycle event, blocking until there is room or the session ends
	Send(event domain.Event) error

	// TrySend enqueues an advisory event and reports false when it was dropped
	TrySend(event domain.Event) bool
}

// Session is one client connection: its event queue, job slots and running jobs
type Session struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan domain.Event
	slots   chan struct{}
	limiter *rate.Limiter

	mu   sync.Mutex
	jobs map[string]context.CancelFunc
}

func newSession(parent context.Context, config domain.JobsConfig) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		id:      uuid.New().String(),
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan domain.Event, config.EventQueueSize),
		slots:   make(chan struct{}, config.MaxPerSession),
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		jobs:    make(map[string]context.CancelFunc),
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Context is cancelled when the session closes
func (s *Session) Context() context.Context {
	return s.ctx
}

// Events is drained by the connection's single writer
func (s *Session) Events() <-chan domain.Event {
	return s.events
}

// Send enqueues an event, blocking while the queue is full
func (s *Session) Send(event domain.Event) error {
	select {
	case s.events <- event:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// TrySend enqueues an event unless the queue is full
func (s *Session) TrySend(event domain.Event) bool {
	if s.ctx.Err() != nil {
		return false
	}
	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}

// Allow reports whether a new job request fits the session's rate limit
func (s *Session) Allow() bool {
	return s.limiter.Allow()
}

func (s *Session) acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) release() {
	<-s.slots
}

func (s *Session) track(jobID string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[jobID] = cancel
}

func (s *Session) untrack(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}

// CancelJobs cancels every running job and returns how many were cancelled
func (s *Session) CancelJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.jobs {
		cancel()
	}
	return len(s.jobs)
}

// ActiveJobs returns the number of jobs not yet finished
func (s *Session) ActiveJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// SessionHub maps session IDs to live sessions
type SessionHub struct {
	config   domain.JobsConfig
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessionHub creates an empty hub
func NewSessionHub(config domain.JobsConfig) *SessionHub {
	return &SessionHub{
		config:   config,
		sessions: make(map[string]*Session),
	}
}

// Open registers a new session bound to parent
func (h *SessionHub) Open(parent context.Context) *Session {
	session := newSession(parent, h.config)

	h.mu.Lock()
	h.sessions[session.id] = session
	h.mu.Unlock()

	return session
}

// Get returns the session with the given ID
func (h *SessionHub) Get(id string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	session, ok := h.sessions[id]
	return session, ok
}

// Close cancels the session and everything running for it
func (h *SessionHub) Close(id string) {
	h.mu.Lock()
	session, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()

	if ok {
		session.cancel()
	}
}

// Count returns the number of open sessions
func (h *SessionHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// CloseAll cancels every session, used at shutdown
func (h *SessionHub) CloseAll() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()

	for _, session := range sessions {
		session.cancel()
	}
}
