package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"github.com/lrstanley/go-ytdlp"
	"github.com/yourusername/streamline-go/internal/domain"
	"go.uber.org/zap"
)

// searchFunc runs a yt-dlp search and returns the flat entries
type searchFunc func(ctx context.Context, query string, limit int) ([]*ytdlp.ExtractedInfo, error)

// YTDLPSearcher implements domain.Searcher with a flat yt-dlp search
type YTDLPSearcher struct {
	run    searchFunc
	logger *zap.Logger
}

// NewYTDLPSearcher creates a searcher using the yt-dlp executable at binary.
// An empty binary lets go-ytdlp resolve yt-dlp from PATH.
func NewYTDLPSearcher(binary string, logger *zap.Logger) *YTDLPSearcher {
	return &YTDLPSearcher{
		run: func(ctx context.Context, query string, limit int) ([]*ytdlp.ExtractedInfo, error) {
			cmd := ytdlp.New().
				FlatPlaylist().
				DumpJSON().
				NoWarnings()
			executable := "yt-dlp"
			if binary != "" {
				cmd = cmd.SetExecutable(binary)
				executable = binary
			}

			target := fmt.Sprintf("ytsearch%d:%s", limit, query)
			logger.Debug("Running search",
				zap.String("command", commandLine(executable, "--flat-playlist", "--dump-json", "--no-warnings", target)))

			result, err := cmd.Run(ctx, target)
			if err != nil {
				return nil, err
			}
			return result.GetExtractedInfo()
		},
		logger: logger,
	}
}

// Search returns at most limit results that carry both a title and a URL
func (s *YTDLPSearcher) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}

	infos, err := s.run(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]domain.SearchResult, 0, limit)
	for _, info := range infos {
		if len(results) >= limit {
			break
		}
		if result, ok := searchResultFromInfo(info); ok {
			results = append(results, result)
		}
	}

	s.logger.Debug("Search completed",
		zap.String("query", query),
		zap.Int("entries", len(infos)),
		zap.Int("results", len(results)))

	return results, nil
}

func searchResultFromInfo(info *ytdlp.ExtractedInfo) (domain.SearchResult, bool) {
	if info == nil {
		return domain.SearchResult{}, false
	}

	result := domain.SearchResult{
		Title: strings.TrimSpace(deref(info.Title)),
	}

	switch {
	case info.ID != "":
		result.URL = WatchURL(info.ID)
	case deref(info.WebpageURL) != "":
		result.URL = deref(info.WebpageURL)
	default:
		result.URL = deref(info.URL)
	}
	if result.Title == "" || result.URL == "" {
		return domain.SearchResult{}, false
	}

	result.Thumbnail = deref(info.Thumbnail)
	if result.Thumbnail == "" && info.ID != "" {
		result.Thumbnail = "https://i.ytimg.com/vi/" + info.ID + "/hqdefault.jpg"
	}
	if info.Duration != nil {
		result.Duration = int(*info.Duration)
	}
	return result, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
