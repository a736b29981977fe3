package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Provider ProviderConfig `mapstructure:"provider"`
	Search   SearchConfig   `mapstructure:"search"`
	History  HistoryConfig  `mapstructure:"history"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig contains artifact store configuration
type StorageConfig struct {
	DownloadsDir string `mapstructure:"downloads_dir"`
	SweepOnStart bool   `mapstructure:"sweep_on_start"`
}

// JobsConfig contains per-session job execution limits
type JobsConfig struct {
	MaxPerSession     int     `mapstructure:"max_per_session"`
	EventQueueSize    int     `mapstructure:"event_queue_size"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// ProviderConfig contains extraction provider configuration.
// A zero HTTPTimeout means provider calls are bounded only by job cancellation.
type ProviderConfig struct {
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// SearchConfig contains search configuration
type SearchConfig struct {
	YTDLPBinary       string  `mapstructure:"ytdlp_binary"`
	Limit             int     `mapstructure:"limit"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// HistoryConfig contains job history persistence configuration
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // categorized job/delivery/error logs
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			DownloadsDir: "downloads",
			SweepOnStart: true,
		},
		Jobs: JobsConfig{
			MaxPerSession:     2,
			EventQueueSize:    64,
			RequestsPerSecond: 2,
			Burst:             5,
		},
		Provider: ProviderConfig{
			HTTPTimeout: 0,
		},
		Search: SearchConfig{
			YTDLPBinary:       "yt-dlp",
			Limit:             6,
			RequestsPerSecond: 5,
			Burst:             10,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "$HOME/.streamline/history.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "$HOME/.streamline/logs",
		},
	}
}
