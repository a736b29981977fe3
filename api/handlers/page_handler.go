package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pages maps routes to their templates
var Pages = map[string]string{
	"/":         "index.html",
	"/video":    "video.html",
	"/audio":    "audio.html",
	"/playlist": "playlist.html",
	"/captions": "captions.html",
}

// PageHandler renders the form pages
type PageHandler struct{}

// NewPageHandler creates a new page handler
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Render returns a handler for the named template, pre-filling the url query parameter
func (h *PageHandler) Render(template string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, template, gin.H{
			"URL": c.Query("url"),
		})
	}
}
