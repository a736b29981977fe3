package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/streamline-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, config)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.streamline")
		v.AddConfigPath("/etc/streamline")
	}

	v.SetEnvPrefix("STREAMLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent from the file
func setDefaults(v *viper.Viper, config *domain.Config) {
	v.SetDefault("server.host", config.Server.Host)
	v.SetDefault("server.port", config.Server.Port)
	v.SetDefault("server.shutdown_timeout", config.Server.ShutdownTimeout)
	v.SetDefault("storage.downloads_dir", config.Storage.DownloadsDir)
	v.SetDefault("storage.sweep_on_start", config.Storage.SweepOnStart)
	v.SetDefault("jobs.max_per_session", config.Jobs.MaxPerSession)
	v.SetDefault("jobs.event_queue_size", config.Jobs.EventQueueSize)
	v.SetDefault("jobs.requests_per_second", config.Jobs.RequestsPerSecond)
	v.SetDefault("jobs.burst", config.Jobs.Burst)
	v.SetDefault("provider.http_timeout", config.Provider.HTTPTimeout)
	v.SetDefault("search.ytdlp_binary", config.Search.YTDLPBinary)
	v.SetDefault("search.limit", config.Search.Limit)
	v.SetDefault("search.requests_per_second", config.Search.RequestsPerSecond)
	v.SetDefault("search.burst", config.Search.Burst)
	v.SetDefault("history.enabled", config.History.Enabled)
	v.SetDefault("history.database_path", config.History.DatabasePath)
	v.SetDefault("logging.level", config.Logging.Level)
	v.SetDefault("logging.format", config.Logging.Format)
	v.SetDefault("logging.output_path", config.Logging.OutputPath)
	v.SetDefault("logging.logs_dir", config.Logging.LogsDir)
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Storage.DownloadsDir = expandPath(config.Storage.DownloadsDir)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Storage.DownloadsDir == "" {
		return fmt.Errorf("downloads directory not configured")
	}

	if config.Jobs.MaxPerSession < 1 {
		return fmt.Errorf("max jobs per session must be at least 1")
	}

	if config.Jobs.EventQueueSize < 1 {
		return fmt.Errorf("event queue size must be at least 1")
	}

	if config.Jobs.RequestsPerSecond <= 0 || config.Jobs.Burst < 1 {
		return fmt.Errorf("job rate limit must be positive")
	}

	if config.Search.Limit < 1 || config.Search.Limit > domain.MaxSearchResults {
		return fmt.Errorf("search limit must be between 1 and %d", domain.MaxSearchResults)
	}

	if config.Search.RequestsPerSecond <= 0 || config.Search.Burst < 1 {
		return fmt.Errorf("search rate limit must be positive")
	}

	if config.Provider.HTTPTimeout < 0 {
		return fmt.Errorf("provider timeout cannot be negative")
	}

	if config.History.Enabled && config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}
