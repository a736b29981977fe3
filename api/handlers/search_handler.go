package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/streamline-go/internal/app"
)

// SearchHandler handles search requests
type SearchHandler struct {
	service *app.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service *app.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search handles POST /search with form field "query".
// Provider failures are reported in the body with status 200 so the page can show them inline.
func (h *SearchHandler) Search(c *gin.Context) {
	results, err := h.service.Search(c.Request.Context(), c.PostForm("query"))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, results)
}
