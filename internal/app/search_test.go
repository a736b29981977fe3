package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/streamline-go/internal/domain"
	"go.uber.org/zap"
)

type mockSearcher struct {
	results []domain.SearchResult
	err     error
	queries []string
}

func (m *mockSearcher) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	m.queries = append(m.queries, query)
	return m.results, m.err
}

func TestSearchService_LimitsAndFilters(t *testing.T) {
	searcher := &mockSearcher{}
	searcher.results = append(searcher.results, domain.SearchResult{Title: "", URL: "https://youtu.be/x"})
	searcher.results = append(searcher.results, domain.SearchResult{Title: "No URL"})
	for i := 0; i < 10; i++ {
		searcher.results = append(searcher.results, domain.SearchResult{
			Title: fmt.Sprintf("Video %d", i),
			URL:   fmt.Sprintf("https://www.youtube.com/watch?v=%d", i),
		})
	}
	service := NewSearchService(searcher, 6, zap.NewNop())

	results, err := service.Search(context.Background(), "  cats  ")
	require.NoError(t, err)

	assert.Equal(t, []string{"cats"}, searcher.queries)
	assert.LessOrEqual(t, len(results), 6)
	assert.Len(t, results, 6)
	for _, r := range results {
		assert.NotEmpty(t, r.Title)
		assert.NotEmpty(t, r.URL)
	}
	assert.Equal(t, "Video 0", results[0].Title)
}

func TestSearchService_ClampsLimit(t *testing.T) {
	for _, limit := range []int{0, 20} {
		searcher := &mockSearcher{}
		for i := 0; i < 10; i++ {
			searcher.results = append(searcher.results, domain.SearchResult{
				Title: fmt.Sprintf("Video %d", i),
				URL:   fmt.Sprintf("https://www.youtube.com/watch?v=%d", i),
			})
		}
		service := NewSearchService(searcher, limit, zap.NewNop())

		results, err := service.Search(context.Background(), "cats")
		require.NoError(t, err)
		assert.Len(t, results, domain.MaxSearchResults, "limit %d", limit)
	}
}

func TestSearchService_EmptyQuery(t *testing.T) {
	searcher := &mockSearcher{}
	service := NewSearchService(searcher, 6, zap.NewNop())

	results, err := service.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Empty(t, searcher.queries)
}

func TestSearchService_Error(t *testing.T) {
	service := NewSearchService(&mockSearcher{err: errors.New("network down")}, 6, zap.NewNop())

	_, err := service.Search(context.Background(), "dogs")
	assert.ErrorContains(t, err, "network down")
}
