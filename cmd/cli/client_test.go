package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/streamline-go/internal/domain"
)

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://localhost:5000", "ws://localhost:5000/ws", false},
		{"https://example.com/", "wss://example.com/ws", false},
		{"http://example.com/base", "ws://example.com/base/ws", false},
		{"ftp://example.com", "", true},
	}

	for _, tt := range tests {
		got, err := websocketURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestAttachmentName(t *testing.T) {
	assert.Equal(t, "Song.mp3", attachmentName(`attachment; filename="Song.mp3"`, "/get_file/other.mp3"))
	assert.Equal(t, "passwd", attachmentName(`attachment; filename="../../etc/passwd"`, "/get_file/x"))
	assert.Equal(t, "My Clip.mp4", attachmentName("", "/get_file/My%20Clip.mp4"))
}

func TestDecodeSearch(t *testing.T) {
	results, err := decodeSearch([]byte(`[{"title":"a","url":"https://youtu.be/a","duration":61}]`))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 61, results[0].Duration)

	_, err = decodeSearch([]byte(`{"error":"search failed"}`))
	assert.EqualError(t, err, "search failed")

	results, err = decodeSearch([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestServerEnv(t *testing.T) {
	assert.Equal(t, []string{"STREAMLINE_SERVER_HOST=127.0.0.1", "STREAMLINE_SERVER_PORT=5050"}, serverEnv("http://127.0.0.1:5050"))
	assert.Nil(t, serverEnv("http://localhost"))
}

// fakeServer answers one job message with the scripted events and serves the artifact once
func fakeServer(t *testing.T, script func(conn *websocket.Conn, msg map[string]interface{})) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		script(conn, msg)
	})
	mux.HandleFunc("/get_file/Clip.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="Clip.mp4"`)
		w.Write([]byte("video bytes"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestJobClient_SavesReadyArtifact(t *testing.T) {
	server := fakeServer(t, func(conn *websocket.Conn, msg map[string]interface{}) {
		assert.Equal(t, domain.MsgStartVideo, msg["event"])
		conn.WriteJSON(domain.Event{Name: domain.EventProgress, Data: domain.ProgressData{Percentage: 50}})
		conn.WriteJSON(domain.Event{Name: domain.EventProgress, Data: domain.ProgressData{Percentage: 100}})
		conn.WriteJSON(domain.Event{Name: domain.EventVideoReady, Data: domain.FileReadyData{FileURL: "/get_file/Clip.mp4"}})
		conn.ReadMessage()
	})

	dir := t.TempDir()
	var out bytes.Buffer
	err := newJobClient(server.URL, dir, &out).run(context.Background(), domain.MsgStartVideo, domain.JobRequest{URL: "https://youtu.be/x"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "Clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(data))
	assert.Contains(t, out.String(), "100.0%")
}

func TestJobClient_ErrorEventFailsRun(t *testing.T) {
	server := fakeServer(t, func(conn *websocket.Conn, msg map[string]interface{}) {
		conn.WriteJSON(domain.Event{Name: domain.EventError, Data: domain.ErrorData{Message: "video unavailable"}})
		conn.ReadMessage()
	})

	var out bytes.Buffer
	err := newJobClient(server.URL, t.TempDir(), &out).run(context.Background(), domain.MsgStartAudio, domain.JobRequest{URL: "https://youtu.be/x"})
	assert.EqualError(t, err, "video unavailable")
}

func TestJobClient_CancelSendsCancelMessage(t *testing.T) {
	server := fakeServer(t, func(conn *websocket.Conn, msg map[string]interface{}) {
		var cancel map[string]interface{}
		if err := conn.ReadJSON(&cancel); err != nil {
			return
		}
		assert.Equal(t, domain.MsgCancel, cancel["event"])
		conn.WriteJSON(domain.Event{Name: domain.EventError, Data: domain.ErrorData{Message: "download cancelled"}})
		conn.ReadMessage()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(50*time.Millisecond, cancel)

	var out bytes.Buffer
	err := newJobClient(server.URL, t.TempDir(), &out).run(ctx, domain.MsgStartVideo, domain.JobRequest{URL: "https://youtu.be/x"})
	assert.EqualError(t, err, "download cancelled")
	assert.Contains(t, out.String(), "Cancelling")
}

func TestJobClient_HandleRejectsMalformedEvents(t *testing.T) {
	client := newJobClient("http://127.0.0.1:1", t.TempDir(), &bytes.Buffer{})

	tests := []struct {
		name  string
		event wireEvent
		want  string
	}{
		{"ready without payload", wireEvent{Event: domain.EventVideoReady, Data: []byte(`{}`)}, "missing file_url"},
		{"ready with wrong type", wireEvent{Event: domain.EventDownloadReady, Data: []byte(`{"file_url":42}`)}, "malformed download_ready event"},
		{"progress not an object", wireEvent{Event: domain.EventProgress, Data: []byte(`"fifty"`)}, "malformed progress event"},
		{"error with array payload", wireEvent{Event: domain.EventError, Data: []byte(`[1]`)}, "malformed error event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done, err := client.handle(tt.event)
			assert.True(t, done)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
