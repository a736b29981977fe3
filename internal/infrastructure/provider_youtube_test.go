package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/streamline-go/internal/domain"
	"go.uber.org/zap"
)

func testVideo() *youtube.Video {
	video := &youtube.Video{
		ID:    "dQw4w9WgXcQ",
		Title: "Test Video",
		Formats: youtube.FormatList{
			{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Width: 640, Height: 360, Bitrate: 500000, AudioChannels: 2, ContentLength: 1000},
			{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, Width: 1920, Height: 1080, Bitrate: 4000000},
			{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, AverageBitrate: 128000, AudioChannels: 2},
		},
	}
	video.CaptionTracks = make([]youtube.CaptionTrack, 2)
	video.CaptionTracks[0].LanguageCode = "en"
	video.CaptionTracks[0].Name.SimpleText = "English"
	video.CaptionTracks[1].LanguageCode = "en"
	video.CaptionTracks[1].Kind = "asr"
	video.CaptionTracks[1].Name.SimpleText = "English (auto-generated)"
	return video
}

func TestMediaFromVideo(t *testing.T) {
	media := mediaFromVideo(testVideo())

	assert.Equal(t, "dQw4w9WgXcQ", media.ID)
	assert.Equal(t, "Test Video", media.Title)
	require.Len(t, media.Streams, 3)
	assert.Equal(t, 128000, media.Streams[2].Bitrate)
	assert.Equal(t, int64(1000), media.Streams[0].Size)
	assert.Equal(t, []domain.CaptionTrack{
		{Code: "en", Name: "English"},
		{Code: "a.en", Name: "English (auto-generated)"},
	}, media.Captions)

	best, err := media.BestProgressive()
	require.NoError(t, err)
	assert.Equal(t, 18, best.Itag)

	audio, err := media.BestAudio()
	require.NoError(t, err)
	assert.Equal(t, 140, audio.Itag)
}

func TestYouTubeProvider_OpenStreamUnknownItag(t *testing.T) {
	provider := NewYouTubeProvider(0, zap.NewNop())
	media := mediaFromVideo(testVideo())

	_, _, err := provider.OpenStream(context.Background(), media, domain.Stream{Itag: 999})
	assert.ErrorIs(t, err, domain.ErrNoStream)
}

func TestYouTubeProvider_CaptionUnknownCode(t *testing.T) {
	provider := NewYouTubeProvider(0, zap.NewNop())
	media := mediaFromVideo(testVideo())

	_, err := provider.Caption(context.Background(), media, "fr")
	assert.ErrorIs(t, err, domain.ErrCaptionNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestYouTubeProvider_ForeignMedia(t *testing.T) {
	provider := NewYouTubeProvider(0, zap.NewNop())

	_, _, err := provider.OpenStream(context.Background(), &domain.Media{}, domain.Stream{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = provider.Caption(context.Background(), nil, "en")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestClassifyYouTubeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"private", youtube.ErrVideoPrivate, domain.ErrRestricted},
		{"login", fmt.Errorf("wrapped: %w", youtube.ErrLoginRequired), domain.ErrRestricted},
		{"bad id", youtube.ErrInvalidCharactersInVideoID, domain.ErrInvalidURL},
		{"bad playlist", youtube.ErrInvalidPlaylist, domain.ErrInvalidURL},
		{"unplayable", &youtube.ErrPlayabiltyStatus{Status: "ERROR", Reason: "Video unavailable"}, domain.ErrUnavailable},
		{"cancelled", context.Canceled, context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyYouTubeError(tt.err, "failed to fetch video")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	network := errors.New("connection reset")
	err := classifyYouTubeError(network, "failed to fetch video")
	assert.ErrorIs(t, err, network)
	assert.Equal(t, domain.KindProviderError, domain.KindOf(err))
}

func TestWatchURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", WatchURL("abc"))
	assert.Empty(t, WatchURL(""))
}

func TestYouTubeProvider_PlaylistFallback(t *testing.T) {
	provider := NewYouTubeProvider(0, zap.NewNop())
	var gotID string
	provider.fallback = func(ctx context.Context, playlistID string) ([]domain.PlaylistEntry, error) {
		gotID = playlistID
		return []domain.PlaylistEntry{{ID: "a", Title: "A", URL: WatchURL("a")}}, nil
	}

	playlist, err := provider.resolvePlaylistFallback(context.Background(), "https://www.youtube.com/playlist?list=PL123&index=2")
	require.NoError(t, err)
	assert.Equal(t, "PL123", gotID)
	assert.Equal(t, "PL123", playlist.ID)
	assert.Len(t, playlist.Entries, 1)

	_, err = provider.resolvePlaylistFallback(context.Background(), "https://www.youtube.com/watch?v=abc")
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
}

func TestPlaylistID(t *testing.T) {
	assert.Equal(t, "PLxyz", PlaylistID(" https://www.youtube.com/playlist?list=PLxyz "))
	assert.Empty(t, PlaylistID("https://youtu.be/abc"))
	assert.Empty(t, PlaylistID("::bad"))
}
