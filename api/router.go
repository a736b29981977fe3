package api

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/streamline-go/api/handlers"
	"github.com/yourusername/streamline-go/api/middleware"
	"github.com/yourusername/streamline-go/internal/app"
	"github.com/yourusername/streamline-go/internal/domain"
	"github.com/yourusername/streamline-go/pkg/logger"
	"github.com/yourusername/streamline-go/web"
)

// Dependencies holds everything the HTTP layer talks to
type Dependencies struct {
	Hub         *app.SessionHub
	Manager     *app.JobManager
	Search      *app.SearchService
	Store       domain.ArtifactStore
	History     domain.JobHistoryRepository
	Logger      *zap.Logger
	MultiLogger *logger.MultiLogger
	SearchRate  domain.SearchConfig
	Ready       func() error
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps Dependencies) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger, deps.MultiLogger))
	router.Use(middleware.CORS())

	router.SetHTMLTemplate(template.Must(web.Templates()))
	router.StaticFS("/static", http.FS(web.StaticFS()))

	// Pages
	pageHandler := handlers.NewPageHandler()
	for path, name := range handlers.Pages {
		router.GET(path, pageHandler.Render(name))
	}

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(deps.Hub, deps.Manager, deps.Ready)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Event channel
	eventHandler := handlers.NewEventHandler(deps.Hub, deps.Manager, deps.Logger)
	router.GET("/ws", eventHandler.HandleWebSocket)

	// Search
	searchHandler := handlers.NewSearchHandler(deps.Search)
	searchLimiter := middleware.NewIPRateLimiter(deps.SearchRate.RequestsPerSecond, deps.SearchRate.Burst)
	router.POST("/search", middleware.RateLimit(searchLimiter, http.StatusOK), searchHandler.Search)

	// Delivery
	fileHandler := handlers.NewFileHandler(deps.Store, deps.History, deps.Logger, deps.MultiLogger)
	router.GET("/get_file/:filename", fileHandler.GetFile)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		historyHandler := handlers.NewHistoryHandler(deps.History, deps.Logger)
		jobs := v1.Group("/jobs")
		{
			jobs.GET("", historyHandler.ListJobs)
			jobs.GET("/stats", historyHandler.GetStats)
		}

		if deps.MultiLogger != nil {
			logHandler := handlers.NewLogHandler(deps.MultiLogger.GetLogsDir())
			logs := v1.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/:category", logHandler.GetLogs)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.String(http.StatusNotFound, "Page not found")
	})

	return router
}
