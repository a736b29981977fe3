package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/yourusername/streamline-go/api"
	"github.com/yourusername/streamline-go/api/handlers"
	"github.com/yourusername/streamline-go/internal/app"
	"github.com/yourusername/streamline-go/internal/domain"
	"github.com/yourusername/streamline-go/internal/infrastructure"
	"github.com/yourusername/streamline-go/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file (default: ./configs, ~/.streamline, /etc/streamline)")

func main() {
	flag.Parse()
	runServer(*configPath)
}

func runServer(configPath string) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Initialize multi-logger (3 categories: job, delivery, error)
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Logging.LogsDir,
	})
	if err != nil {
		log.Warn("Categorized logs disabled", zap.Error(err))
		multiLog = nil
	} else {
		defer multiLog.Close()
	}

	log.Info("Starting Streamline server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("downloads_dir", config.Storage.DownloadsDir),
		zap.Int("max_jobs_per_session", config.Jobs.MaxPerSession))

	// Artifact store
	store, err := infrastructure.NewFSArtifactStore(config.Storage.DownloadsDir, log)
	if err != nil {
		log.Fatal("Failed to initialize downloads directory", zap.Error(err))
	}
	if config.Storage.SweepOnStart {
		if _, err := store.Sweep(); err != nil {
			log.Warn("Failed to sweep downloads directory", zap.Error(err))
		}
	}

	// Job history
	history, closeHistory := openHistory(config.History, log)
	defer closeHistory()

	// Provider and searcher
	provider := infrastructure.NewYouTubeProvider(config.Provider.HTTPTimeout, log)
	searcher := infrastructure.NewYTDLPSearcher(config.Search.YTDLPBinary, log)

	runner := app.NewJobRunner(provider, store, log)
	manager := app.NewJobManager(runner, store, history, log, multiLog)
	hub := app.NewSessionHub(config.Jobs)

	// Setup HTTP router
	router := api.SetupRouter(api.Dependencies{
		Hub:         hub,
		Manager:     manager,
		Search:      app.NewSearchService(searcher, config.Search.Limit, log),
		Store:       store,
		History:     history,
		Logger:      log,
		MultiLogger: multiLog,
		SearchRate:  config.Search,
		Ready: func() error {
			if !dirWritable(store.Root()) {
				return fmt.Errorf("downloads directory %s is not writable", store.Root())
			}
			return nil
		},
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server; hijacked websocket connections are closed through their sessions
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	hub.CloseAll()
	if err := manager.Wait(shutdownCtx); err != nil {
		log.Warn("Jobs still running at shutdown", zap.Int64("active", manager.ActiveJobs()))
	}

	log.Info("Server exited")
}

// openHistory returns the sqlite repository, or a no-op one when history is disabled or unavailable
func openHistory(config domain.HistoryConfig, log *zap.Logger) (domain.JobHistoryRepository, func()) {
	if !config.Enabled {
		return infrastructure.NopJobRepository{}, func() {}
	}

	repo, err := infrastructure.NewSQLiteJobRepository(config.DatabasePath)
	if err != nil {
		log.Warn("Job history disabled", zap.String("database", config.DatabasePath), zap.Error(err))
		return infrastructure.NopJobRepository{}, func() {}
	}

	return repo, func() {
		if err := repo.Close(); err != nil {
			log.Warn("Failed to close job history", zap.Error(err))
		}
	}
}

// dirWritable probes dir with a temporary file
func dirWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".ready-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
