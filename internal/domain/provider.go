package domain

import (
	"context"
	"io"
	"mime"
	"strings"
)

// Provider extracts media metadata and streams from a video platform
type Provider interface {
	// Resolve fetches title, streams and caption tracks for a video URL
	Resolve(ctx context.Context, url string) (*Media, error)

	// OpenStream opens the chosen stream and returns its total size in bytes
	OpenStream(ctx context.Context, media *Media, stream Stream) (io.ReadCloser, int64, error)

	// ResolvePlaylist fetches the playlist title and its ordered members
	ResolvePlaylist(ctx context.Context, url string) (*Playlist, error)

	// Caption fetches the timed text of a caption track
	Caption(ctx context.Context, media *Media, code string) (*Caption, error)
}

// Searcher runs free-text queries against the platform
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// Media is resolved video metadata
type Media struct {
	ID       string
	Title    string
	Streams  []Stream
	Captions []CaptionTrack

	// Source is the provider's own representation, opaque to callers
	Source interface{}
}

// Stream describes one encoded variant offered by the provider
type Stream struct {
	Itag          int
	MimeType      string
	Width         int
	Height        int
	Bitrate       int
	AudioChannels int
	Size          int64
}

// Progressive reports whether the stream carries both audio and video
func (s Stream) Progressive() bool {
	return s.AudioChannels > 0 && (s.Width > 0 || s.Height > 0)
}

// AudioOnly reports whether the stream carries audio and no video
func (s Stream) AudioOnly() bool {
	return s.AudioChannels > 0 && s.Width == 0 && s.Height == 0
}

// Extension derives a file extension from the stream mime type
func (s Stream) Extension() string {
	mediaType, _, err := mime.ParseMediaType(s.MimeType)
	if err != nil {
		return ".bin"
	}
	switch mediaType {
	case "video/mp4":
		return ".mp4"
	case "audio/mp4":
		return ".m4a"
	case "video/webm", "audio/webm":
		return ".webm"
	case "video/3gpp":
		return ".3gp"
	}
	if i := strings.Index(mediaType, "/"); i >= 0 && i < len(mediaType)-1 {
		return "." + mediaType[i+1:]
	}
	return ".bin"
}

// BestProgressive picks the highest resolution audio+video stream, ties broken by bitrate
func (m *Media) BestProgressive() (Stream, error) {
	var best Stream
	found := false
	for _, s := range m.Streams {
		if !s.Progressive() {
			continue
		}
		if !found || s.Height > best.Height || (s.Height == best.Height && s.Bitrate > best.Bitrate) {
			best = s
			found = true
		}
	}
	if !found {
		return Stream{}, ErrNoStream
	}
	return best, nil
}

// BestAudio picks the audio-only stream with the highest bitrate
func (m *Media) BestAudio() (Stream, error) {
	var best Stream
	found := false
	for _, s := range m.Streams {
		if !s.AudioOnly() {
			continue
		}
		if !found || s.Bitrate > best.Bitrate {
			best = s
			found = true
		}
	}
	if !found {
		return Stream{}, ErrNoStream
	}
	return best, nil
}

// HasCaption reports whether a track with the given language code exists
func (m *Media) HasCaption(code string) bool {
	for _, c := range m.Captions {
		if c.Code == code {
			return true
		}
	}
	return false
}

// Playlist is resolved playlist metadata
type Playlist struct {
	ID      string
	Title   string
	Entries []PlaylistEntry
}

// PlaylistEntry is one member video of a playlist
type PlaylistEntry struct {
	ID    string
	Title string
	URL   string
}

// MaxSearchResults caps the results of one search query
const MaxSearchResults = 6

// SearchResult is one entry of a search response
type SearchResult struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
	Duration  int    `json:"duration"`
}
