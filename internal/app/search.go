package app

import (
	"context"
	"strings"

	"github.com/yourusername/streamline-go/internal/domain"
	"go.uber.org/zap"
)

// SearchService answers free-text queries with at most limit playable results
type SearchService struct {
	searcher domain.Searcher
	limit    int
	logger   *zap.Logger
}

// NewSearchService creates a new search service. limit is clamped to 1..domain.MaxSearchResults.
func NewSearchService(searcher domain.Searcher, limit int, logger *zap.Logger) *SearchService {
	if limit < 1 || limit > domain.MaxSearchResults {
		limit = domain.MaxSearchResults
	}
	return &SearchService{
		searcher: searcher,
		limit:    limit,
		logger:   logger,
	}
}

// Search trims the query and returns results that have both a title and a URL.
// An empty query yields an empty list without calling the searcher.
func (s *SearchService) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}

	found, err := s.searcher.Search(ctx, query, s.limit)
	if err != nil {
		s.logger.Warn("Search failed", zap.String("query", query), zap.Error(err))
		return nil, err
	}

	results := make([]domain.SearchResult, 0, s.limit)
	for _, r := range found {
		if len(results) == s.limit {
			break
		}
		if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.URL) == "" {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}
