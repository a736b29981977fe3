package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/yourusername/streamline-go/internal/domain"
	"go.uber.org/zap"
)

const autoCaptionPrefix = "a."

// YouTubeProvider implements domain.Provider using kkdai/youtube
type YouTubeProvider struct {
	client   *youtube.Client
	fallback playlistLister
	logger   *zap.Logger
}

// NewYouTubeProvider creates a provider. A zero timeout leaves requests bounded only by the job context.
func NewYouTubeProvider(timeout time.Duration, logger *zap.Logger) *YouTubeProvider {
	return &YouTubeProvider{
		client: &youtube.Client{
			HTTPClient: &http.Client{Timeout: timeout},
		},
		fallback: listPlaylistItems,
		logger:   logger,
	}
}

// Resolve fetches video metadata
func (p *YouTubeProvider) Resolve(ctx context.Context, url string) (*domain.Media, error) {
	video, err := p.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, classifyYouTubeError(err, "failed to fetch video")
	}

	p.logger.Debug("Resolved video",
		zap.String("id", video.ID),
		zap.String("title", video.Title),
		zap.Int("formats", len(video.Formats)),
		zap.Int("captions", len(video.CaptionTracks)))

	return mediaFromVideo(video), nil
}

func mediaFromVideo(video *youtube.Video) *domain.Media {
	media := &domain.Media{
		ID:     video.ID,
		Title:  video.Title,
		Source: video,
	}
	for _, f := range video.Formats {
		media.Streams = append(media.Streams, domain.Stream{
			Itag:          f.ItagNo,
			MimeType:      f.MimeType,
			Width:         f.Width,
			Height:        f.Height,
			Bitrate:       bitrateForFormat(&f),
			AudioChannels: f.AudioChannels,
			Size:          f.ContentLength,
		})
	}
	for _, track := range video.CaptionTracks {
		media.Captions = append(media.Captions, domain.CaptionTrack{
			Code: captionCode(track),
			Name: track.Name.SimpleText,
		})
	}
	return media
}

// captionCode distinguishes auto-generated tracks from uploaded ones sharing a language
func captionCode(track youtube.CaptionTrack) string {
	if track.Kind == "asr" {
		return autoCaptionPrefix + track.LanguageCode
	}
	return track.LanguageCode
}

func bitrateForFormat(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}

// OpenStream opens the chosen format for reading
func (p *YouTubeProvider) OpenStream(ctx context.Context, media *domain.Media, stream domain.Stream) (io.ReadCloser, int64, error) {
	video, err := sourceVideo(media)
	if err != nil {
		return nil, 0, err
	}

	var format *youtube.Format
	for i := range video.Formats {
		if video.Formats[i].ItagNo == stream.Itag {
			format = &video.Formats[i]
			break
		}
	}
	if format == nil {
		return nil, 0, fmt.Errorf("itag %d: %w", stream.Itag, domain.ErrNoStream)
	}

	reader, size, err := p.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, 0, classifyYouTubeError(err, "failed to open stream")
	}
	return reader, size, nil
}

// ResolvePlaylist fetches playlist metadata and its ordered entries
func (p *YouTubeProvider) ResolvePlaylist(ctx context.Context, url string) (*domain.Playlist, error) {
	playlist, err := p.client.GetPlaylistContext(ctx, url)
	if err != nil {
		if ctx.Err() == nil && p.fallback != nil {
			if result, fbErr := p.resolvePlaylistFallback(ctx, url); fbErr == nil {
				p.logger.Warn("Primary playlist lookup failed, used fallback",
					zap.String("url", url),
					zap.Error(err))
				return result, nil
			}
		}
		return nil, classifyYouTubeError(err, "failed to fetch playlist")
	}

	result := &domain.Playlist{
		ID:    playlist.ID,
		Title: playlist.Title,
	}
	for _, entry := range playlist.Videos {
		if entry == nil || entry.ID == "" {
			continue
		}
		title := entry.Title
		if title == "" {
			title = entry.ID
		}
		result.Entries = append(result.Entries, domain.PlaylistEntry{
			ID:    entry.ID,
			Title: title,
			URL:   WatchURL(entry.ID),
		})
	}
	return result, nil
}

func (p *YouTubeProvider) resolvePlaylistFallback(ctx context.Context, url string) (*domain.Playlist, error) {
	id := PlaylistID(url)
	if id == "" {
		return nil, fmt.Errorf("%w: no playlist id in %s", domain.ErrInvalidURL, url)
	}
	entries, err := p.fallback(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.Playlist{ID: id, Title: id, Entries: entries}, nil
}

// Caption fetches the transcript of a caption track
func (p *YouTubeProvider) Caption(ctx context.Context, media *domain.Media, code string) (*domain.Caption, error) {
	video, err := sourceVideo(media)
	if err != nil {
		return nil, err
	}

	var track *youtube.CaptionTrack
	for i := range video.CaptionTracks {
		if captionCode(video.CaptionTracks[i]) == code {
			track = &video.CaptionTracks[i]
			break
		}
	}
	if track == nil {
		return nil, fmt.Errorf("caption %q: %w", code, domain.ErrCaptionNotFound)
	}

	transcript, err := p.client.GetTranscriptCtx(ctx, video, track.LanguageCode)
	if err != nil {
		if errors.Is(err, youtube.ErrTranscriptDisabled) {
			return nil, fmt.Errorf("caption %q: %w", code, domain.ErrCaptionNotFound)
		}
		return nil, classifyYouTubeError(err, "failed to fetch caption")
	}

	caption := &domain.Caption{
		Code: code,
		Name: track.Name.SimpleText,
	}
	for _, seg := range transcript {
		caption.Segments = append(caption.Segments, domain.CaptionSegment{
			Start:    time.Duration(seg.StartMs) * time.Millisecond,
			Duration: time.Duration(seg.Duration) * time.Millisecond,
			Text:     seg.Text,
		})
	}
	return caption, nil
}

func sourceVideo(media *domain.Media) (*youtube.Video, error) {
	if media == nil {
		return nil, fmt.Errorf("%w: missing media", domain.ErrInvalidRequest)
	}
	video, ok := media.Source.(*youtube.Video)
	if !ok || video == nil {
		return nil, fmt.Errorf("%w: media was not resolved by this provider", domain.ErrInvalidRequest)
	}
	return video, nil
}

// WatchURL returns the canonical watch URL for a video ID
func WatchURL(id string) string {
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + id
}

func classifyYouTubeError(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return fmt.Errorf("%s: %w (%v)", op, domain.ErrRestricted, err)
	case errors.Is(err, youtube.ErrInvalidPlaylist),
		errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return fmt.Errorf("%s: %w (%v)", op, domain.ErrInvalidURL, err)
	}

	var statusErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		if strings.EqualFold(statusErr.Status, "LOGIN_REQUIRED") || strings.EqualFold(statusErr.Status, "AGE_VERIFICATION_REQUIRED") {
			return fmt.Errorf("%s: %w (%s)", op, domain.ErrRestricted, statusErr.Reason)
		}
		return fmt.Errorf("%s: %w (%s)", op, domain.ErrUnavailable, statusErr.Reason)
	}

	return fmt.Errorf("%s: %w", op, err)
}
