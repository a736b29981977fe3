package infrastructure

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	ytget "github.com/ytget/ytdlp/v2"
	"github.com/yourusername/streamline-go/internal/domain"
)

// playlistLister resolves playlist members when the primary client cannot
type playlistLister func(ctx context.Context, playlistID string) ([]domain.PlaylistEntry, error)

// listPlaylistItems pages through a playlist with ytget/ytdlp
func listPlaylistItems(ctx context.Context, playlistID string) ([]domain.PlaylistEntry, error) {
	items, err := ytget.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	entries := make([]domain.PlaylistEntry, 0, len(items))
	for _, it := range items {
		if it.VideoID == "" {
			continue
		}
		title := it.Title
		if title == "" {
			title = it.VideoID
		}
		entries = append(entries, domain.PlaylistEntry{
			ID:    it.VideoID,
			Title: title,
			URL:   WatchURL(it.VideoID),
		})
	}
	return entries, nil
}

// PlaylistID extracts the list parameter from a playlist URL
func PlaylistID(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return parsed.Query().Get("list")
}
