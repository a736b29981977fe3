package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yourusername/streamline-go/internal/domain"
	"github.com/yourusername/streamline-go/internal/infrastructure"
	"go.uber.org/zap"
)

// fakeProvider implements domain.Provider from in-memory fixtures
type fakeProvider struct {
	mu         sync.Mutex
	media      map[string]*domain.Media
	content    map[string][]byte
	playlists  map[string]*domain.Playlist
	captions   map[string]*domain.Caption
	resolveErr map[string]error
	readErr    map[string]error
	blockURL   string
	opened     chan string
	panicOn    string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		media:      make(map[string]*domain.Media),
		content:    make(map[string][]byte),
		playlists:  make(map[string]*domain.Playlist),
		captions:   make(map[string]*domain.Caption),
		resolveErr: make(map[string]error),
		readErr:    make(map[string]error),
		opened:     make(chan string, 16),
	}
}

// addVideo registers a video with one progressive and one audio-only stream
func (p *fakeProvider) addVideo(url, title string, size int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.media[url] = &domain.Media{
		ID:    url,
		Title: title,
		Streams: []domain.Stream{
			{Itag: 18, MimeType: "video/mp4", Width: 640, Height: 360, Bitrate: 500, AudioChannels: 2},
			{Itag: 22, MimeType: "video/mp4", Width: 1280, Height: 720, Bitrate: 900, AudioChannels: 2},
			{Itag: 140, MimeType: "audio/mp4", Bitrate: 128, AudioChannels: 2},
		},
		Captions: []domain.CaptionTrack{{Code: "en", Name: "English"}, {Code: "a.en", Name: "English (auto-generated)"}},
		Source:   url,
	}
	p.content[url] = bytes.Repeat([]byte("x"), size)
}

func (p *fakeProvider) Resolve(ctx context.Context, url string) (*domain.Media, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if url == p.panicOn {
		panic("provider exploded")
	}
	if err := p.resolveErr[url]; err != nil {
		return nil, err
	}
	media, ok := p.media[url]
	if !ok {
		return nil, domain.ErrUnavailable
	}
	copied := *media
	return &copied, nil
}

func (p *fakeProvider) OpenStream(ctx context.Context, media *domain.Media, stream domain.Stream) (io.ReadCloser, int64, error) {
	url := media.Source.(string)
	p.mu.Lock()
	data := p.content[url]
	readErr := p.readErr[url]
	block := url == p.blockURL
	p.mu.Unlock()

	select {
	case p.opened <- url:
	default:
	}

	var reader io.Reader = bytes.NewReader(data)
	if readErr != nil {
		reader = io.MultiReader(bytes.NewReader(data[:len(data)/2]), &errReader{err: readErr})
	}
	if block {
		reader = io.MultiReader(bytes.NewReader(data[:len(data)/2]), &ctxReader{ctx: ctx})
	}
	return io.NopCloser(reader), int64(len(data)), nil
}

func (p *fakeProvider) ResolvePlaylist(ctx context.Context, url string) (*domain.Playlist, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.resolveErr[url]; err != nil {
		return nil, err
	}
	playlist, ok := p.playlists[url]
	if !ok {
		return nil, domain.ErrInvalidURL
	}
	return playlist, nil
}

func (p *fakeProvider) Caption(ctx context.Context, media *domain.Media, code string) (*domain.Caption, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	caption, ok := p.captions[code]
	if !ok {
		return nil, domain.ErrCaptionNotFound
	}
	return caption, nil
}

type errReader struct {
	err error
}

func (r *errReader) Read([]byte) (int, error) {
	return 0, r.err
}

// ctxReader blocks until the context is cancelled
type ctxReader struct {
	ctx context.Context
}

func (r *ctxReader) Read([]byte) (int, error) {
	<-r.ctx.Done()
	return 0, r.ctx.Err()
}

// recordingSink captures events; full makes TrySend drop everything
type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
	full   bool
	onSend func(domain.Event)
}

func (s *recordingSink) Send(event domain.Event) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	hook := s.onSend
	s.mu.Unlock()
	if hook != nil {
		hook(event)
	}
	return nil
}

func (s *recordingSink) TrySend(event domain.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.events = append(s.events, event)
	return true
}

func (s *recordingSink) snapshot() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSink) named(name string) []domain.Event {
	var out []domain.Event
	for _, e := range s.snapshot() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func percentages(events []domain.Event) []float64 {
	var out []float64
	for _, e := range events {
		if e.Name == domain.EventProgress {
			out = append(out, e.Data.(domain.ProgressData).Percentage)
		}
	}
	return out
}

// mockHistory implements domain.JobHistoryRepository in memory
type mockHistory struct {
	mu      sync.Mutex
	records map[string]domain.JobRecord
}

func newMockHistory() *mockHistory {
	return &mockHistory{records: make(map[string]domain.JobRecord)}
}

func (m *mockHistory) Create(record *domain.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = *record
	return nil
}

func (m *mockHistory) Update(record *domain.JobRecord) error {
	return m.Create(record)
}

func (m *mockHistory) MarkDelivered(artifactName string) error { return nil }

func (m *mockHistory) FindRecent(limit int) ([]*domain.JobRecord, error) { return nil, nil }

func (m *mockHistory) GetStats() (*domain.JobStats, error) { return &domain.JobStats{}, nil }

func (m *mockHistory) get(id string) (domain.JobRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	return r, ok
}

func newTestStore(t *testing.T) *infrastructure.FSArtifactStore {
	t.Helper()
	store, err := infrastructure.NewFSArtifactStore(filepath.Join(t.TempDir(), "downloads"), zap.NewNop())
	require.NoError(t, err)
	return store
}

func testJobsConfig() domain.JobsConfig {
	return domain.JobsConfig{
		MaxPerSession:     2,
		EventQueueSize:    256,
		RequestsPerSecond: 100,
		Burst:             100,
	}
}

// collectUntil drains session events until one of the terminal names arrives
func collectUntil(t *testing.T, session *Session, terminal ...string) []domain.Event {
	t.Helper()
	var events []domain.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-session.Events():
			events = append(events, e)
			for _, name := range terminal {
				if e.Name == name {
					return events
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %v, got %d events", terminal, len(events))
			return events
		}
	}
}

var errNetwork = errors.New("connection reset by peer")
