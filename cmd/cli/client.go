package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourusername/streamline-go/internal/domain"
)

// wireEvent keeps the payload raw until the event name is known
type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// jobClient drives one job over the server's event channel
type jobClient struct {
	serverURL string
	outputDir string
	out       io.Writer
	http      *http.Client
}

func newJobClient(serverURL, outputDir string, out io.Writer) *jobClient {
	return &jobClient{
		serverURL: strings.TrimRight(serverURL, "/"),
		outputDir: outputDir,
		out:       out,
		http:      &http.Client{},
	}
}

// websocketURL maps http(s)://host to ws(s)://host/ws
func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// run sends one job message and follows its events until the job ends.
// Cancelling ctx asks the server to cancel the job and waits for the acknowledgement.
func (c *jobClient) run(ctx context.Context, event string, req domain.JobRequest) error {
	wsURL, err := websocketURL(c.serverURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]interface{}{"event": event, "data": req}); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	events := make(chan wireEvent)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(events)
		for {
			var e wireEvent
			if err := conn.ReadJSON(&e); err != nil {
				readErr <- err
				return
			}
			select {
			case events <- e:
			case <-stop:
				return
			}
		}
	}()

	cancelled := false
	for {
		select {
		case <-ctx.Done():
			if !cancelled {
				cancelled = true
				fmt.Fprintln(c.out, "\nCancelling...")
				conn.WriteJSON(map[string]interface{}{"event": domain.MsgCancel})
			}
			ctx = context.Background()

		case e, ok := <-events:
			if !ok {
				return fmt.Errorf("connection closed: %w", <-readErr)
			}
			done, err := c.handle(e)
			if done || err != nil {
				return err
			}
		}
	}
}

// handle prints one event and reports whether the job is finished
func (c *jobClient) handle(e wireEvent) (bool, error) {
	switch e.Event {
	case domain.EventProgress:
		var d domain.ProgressData
		if err := decodeEvent(e, &d); err != nil {
			return true, err
		}
		fmt.Fprintf(c.out, "\rProgress: %5.1f%%", d.Percentage)

	case domain.EventStatus:
		var d domain.StatusData
		if err := decodeEvent(e, &d); err != nil {
			return true, err
		}
		fmt.Fprintf(c.out, "\n%s\n", d.Message)

	case domain.EventPlaylistInfo:
		var d domain.PlaylistInfoData
		if err := decodeEvent(e, &d); err != nil {
			return true, err
		}
		fmt.Fprintf(c.out, "Playlist: %s (%d videos)\n", d.Title, d.Count)

	case domain.EventNextVideo:
		var d domain.NextVideoData
		if err := decodeEvent(e, &d); err != nil {
			return true, err
		}
		fmt.Fprintf(c.out, "\n[%d] %s\n", d.Index+1, d.Title)

	case domain.EventCaptionsList:
		var d domain.CaptionsListData
		if err := decodeEvent(e, &d); err != nil {
			return true, err
		}
		fmt.Fprintf(c.out, "Captions for %s:\n", d.Title)
		if len(d.Tracks) == 0 {
			fmt.Fprintln(c.out, "  (none)")
		}
		for _, t := range d.Tracks {
			fmt.Fprintf(c.out, "  %-10s %s\n", t.Code, t.Name)
		}
		return true, nil

	case domain.EventVideoReady, domain.EventDownloadReady, domain.EventPlaylistComplete, domain.EventCaptionReady:
		var d domain.FileReadyData
		if err := decodeEvent(e, &d); err != nil {
			return true, err
		}
		if d.FileURL == "" {
			return true, fmt.Errorf("malformed %s event: missing file_url", e.Event)
		}
		fmt.Fprintln(c.out)
		saved, err := c.fetch(d.FileURL)
		if err != nil {
			return true, err
		}
		fmt.Fprintf(c.out, "Saved %s\n", saved)
		return true, nil

	case domain.EventError:
		var d domain.ErrorData
		if err := decodeEvent(e, &d); err != nil {
			return true, err
		}
		fmt.Fprintln(c.out)
		return true, errors.New(d.Message)
	}
	return false, nil
}

// decodeEvent unmarshals the event payload into v
func decodeEvent(e wireEvent, v interface{}) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("malformed %s event: %w", e.Event, err)
	}
	return nil
}

// fetch pulls the artifact into the output directory
func (c *jobClient) fetch(fileURL string) (string, error) {
	resp, err := c.http.Get(c.serverURL + fileURL)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("failed to download file: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	name := attachmentName(resp.Header.Get("Content-Disposition"), fileURL)
	if err := os.MkdirAll(c.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	target := filepath.Join(c.outputDir, name)

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	return target, f.Close()
}

// attachmentName prefers the server's Content-Disposition filename over the URL
func attachmentName(disposition, fileURL string) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
		return filepath.Base(params["filename"])
	}
	name := path.Base(fileURL)
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return filepath.Base(name)
}

// getJSON fetches an API endpoint and decodes its body into v
func getJSON(serverURL, endpoint string, v interface{}) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(strings.TrimRight(serverURL, "/") + endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, v)
}

// postSearch submits the search form and decodes the result list
func postSearch(serverURL, query string) ([]domain.SearchResult, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.PostForm(strings.TrimRight(serverURL, "/")+"/search", url.Values{"query": {query}})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return decodeSearch(body)
}

// decodeSearch accepts either a result list or the {"error": ...} object
func decodeSearch(body []byte) ([]domain.SearchResult, error) {
	var failed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &failed); err == nil && failed.Error != "" {
		return nil, errors.New(failed.Error)
	}

	var results []domain.SearchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("unexpected search response: %w", err)
	}
	return results, nil
}
