package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/streamline-go/internal/app"
	"github.com/yourusername/streamline-go/internal/domain"
	"github.com/yourusername/streamline-go/internal/infrastructure"
)

// stubProvider serves one progressive stream per registered URL
type stubProvider struct {
	titles map[string]string
	body   []byte
	block  bool
}

func (p *stubProvider) Resolve(ctx context.Context, url string) (*domain.Media, error) {
	title, ok := p.titles[url]
	if !ok {
		return nil, domain.ErrUnavailable
	}
	return &domain.Media{
		ID:       url,
		Title:    title,
		Streams:  []domain.Stream{{Itag: 18, MimeType: "video/mp4", Height: 360, AudioChannels: 2}},
		Captions: []domain.CaptionTrack{{Code: "en", Name: "English"}},
	}, nil
}

func (p *stubProvider) OpenStream(ctx context.Context, media *domain.Media, stream domain.Stream) (io.ReadCloser, int64, error) {
	if p.block {
		return io.NopCloser(&blockingReader{ctx: ctx}), int64(len(p.body)), nil
	}
	return io.NopCloser(bytes.NewReader(p.body)), int64(len(p.body)), nil
}

func (p *stubProvider) ResolvePlaylist(ctx context.Context, url string) (*domain.Playlist, error) {
	return nil, domain.ErrInvalidURL
}

func (p *stubProvider) Caption(ctx context.Context, media *domain.Media, code string) (*domain.Caption, error) {
	return nil, domain.ErrCaptionNotFound
}

type blockingReader struct {
	ctx context.Context
}

func (r *blockingReader) Read([]byte) (int, error) {
	<-r.ctx.Done()
	return 0, r.ctx.Err()
}

type stubSearcher struct{}

func (stubSearcher) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	return []domain.SearchResult{{Title: query, URL: "https://www.youtube.com/watch?v=x", Duration: 10}}, nil
}

func setupServer(t *testing.T, provider domain.Provider) (*httptest.Server, *app.SessionHub) {
	t.Helper()
	log := zap.NewNop()

	store, err := infrastructure.NewFSArtifactStore(filepath.Join(t.TempDir(), "downloads"), log)
	require.NoError(t, err)

	config := domain.DefaultConfig()
	hub := app.NewSessionHub(config.Jobs)
	history := infrastructure.NopJobRepository{}
	runner := app.NewJobRunner(provider, store, log)
	manager := app.NewJobManager(runner, store, history, log, nil)

	router := SetupRouter(Dependencies{
		Hub:        hub,
		Manager:    manager,
		Search:     app.NewSearchService(stubSearcher{}, config.Search.Limit, log),
		Store:      store,
		History:    history,
		Logger:     log,
		SearchRate: config.Search,
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.CloseAll()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		manager.Wait(ctx)
		server.Close()
	})
	return server, hub
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wireEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

func readUntil(t *testing.T, conn *websocket.Conn, names ...string) []wireEvent {
	t.Helper()
	var events []wireEvent
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var e wireEvent
		require.NoError(t, conn.ReadJSON(&e))
		events = append(events, e)
		for _, name := range names {
			if e.Event == name {
				return events
			}
		}
	}
}

func TestRouter_VideoDownloadOverWebSocket(t *testing.T) {
	provider := &stubProvider{
		titles: map[string]string{"https://youtu.be/abc": "Hello World"},
		body:   bytes.Repeat([]byte("v"), 300*1024),
	}
	server, hub := setupServer(t, provider)
	conn := dial(t, server)

	connected := readUntil(t, conn, domain.EventConnected)
	sessionID := connected[0].Data["session_id"].(string)
	assert.NotEmpty(t, sessionID)
	_, ok := hub.Get(sessionID)
	assert.True(t, ok)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"event": domain.MsgStartVideo,
		"data":  map[string]string{"url": "https://youtu.be/abc"},
	}))

	events := readUntil(t, conn, domain.EventVideoReady, domain.EventError)
	ready := events[len(events)-1]
	require.Equal(t, domain.EventVideoReady, ready.Event)

	var last float64 = -1
	for _, e := range events[:len(events)-1] {
		require.Equal(t, domain.EventProgress, e.Event)
		pct := e.Data["percentage"].(float64)
		assert.GreaterOrEqual(t, pct, last)
		last = pct
	}
	assert.Equal(t, 100.0, last)

	fileURL := ready.Data["file_url"].(string)
	assert.Equal(t, "/get_file/Hello_World.mp4", fileURL)

	resp, err := http.Get(server.URL + fileURL)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body, 300*1024)

	resp, err = http.Get(server.URL + fileURL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_InvalidMessagesGetErrorEvents(t *testing.T) {
	server, _ := setupServer(t, &stubProvider{})
	conn := dial(t, server)
	readUntil(t, conn, domain.EventConnected)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	events := readUntil(t, conn, domain.EventError)
	assert.Contains(t, events[len(events)-1].Data["message"], "not valid JSON")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": "start_gif_download"}))
	events = readUntil(t, conn, domain.EventError)
	assert.Contains(t, events[len(events)-1].Data["message"], "unknown event")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"event": domain.MsgStartAudio,
		"data":  map[string]string{"url": "javascript:alert(1)"},
	}))
	events = readUntil(t, conn, domain.EventError)
	assert.Contains(t, events[len(events)-1].Data["message"], "invalid URL")
}

func TestRouter_CancelDownload(t *testing.T) {
	provider := &stubProvider{
		titles: map[string]string{"https://youtu.be/slow": "Slow"},
		body:   make([]byte, 1024),
		block:  true,
	}
	server, _ := setupServer(t, provider)
	conn := dial(t, server)
	readUntil(t, conn, domain.EventConnected)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"event": domain.MsgStartVideo,
		"data":  map[string]string{"url": "https://youtu.be/slow"},
	}))
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": domain.MsgCancel}))

	events := readUntil(t, conn, domain.EventError, domain.EventVideoReady)
	last := events[len(events)-1]
	assert.Equal(t, domain.EventError, last.Event)
	assert.Equal(t, "download cancelled", last.Data["message"])
}

func TestRouter_DisconnectClosesSession(t *testing.T) {
	server, hub := setupServer(t, &stubProvider{})
	conn := dial(t, server)
	readUntil(t, conn, domain.EventConnected)
	assert.Equal(t, 1, hub.Count())

	conn.Close()

	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRouter_PagesPrefillURL(t *testing.T) {
	server, _ := setupServer(t, &stubProvider{})

	for _, page := range []string{"/video", "/audio", "/playlist", "/captions"} {
		resp, err := http.Get(server.URL + page + "?url=https%3A%2F%2Fyoutu.be%2Fabc")
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode, page)
		assert.Contains(t, string(body), `value="https://youtu.be/abc"`, page)
	}

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/static/app.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_HealthAndSearch(t *testing.T) {
	server, _ := setupServer(t, &stubProvider{})

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	resp, err = http.Get(server.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.PostForm(server.URL+"/search", map[string][]string{"query": {"cats"}})
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"title":"cats"`)

	resp, err = http.Get(server.URL + "/api/v1/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
