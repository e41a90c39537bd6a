package config

// Config holds the application configuration.
type Config struct {
	Telegram Telegram `yaml:"telegram"`
	Logger   Logger   `yaml:"logger"`
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Spotify  Spotify  `yaml:"spotify"`
	Sync     Sync     `yaml:"sync"`
	Jobs     Jobs     `yaml:"jobs"`
}

type Jobs struct {
	Log      bool          `yaml:"log"`
	LogPath  string        `yaml:"log_path"`
	Webhooks WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	Enabled  bool     `yaml:"enabled"`
	JobTypes []string `yaml:"job_types"`
	Command  string   `yaml:"command"`
}

// Database holds the configuration for the database
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Server hold the configuration for the Fiber server Config
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}

type Telegram struct {
	Enabled      bool     `yaml:"enabled"`
	Token        string   `yaml:"token"`
	AllowedUsers []string `yaml:"allowedUsers"`
	BotHandle    string   `yaml:"bot_handle"`
}

// Spotify holds the application credentials for the Spotify Web API.
// Account tokens live on the spotify source rows, not here.
type Spotify struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
}

// Sync holds configuration for library synchronization
type Sync struct {
	Workers          int     `yaml:"workers" validate:"omitempty,min=1"`
	AutoStartWatcher bool    `yaml:"auto_start_watcher"`
	WatcherDebounce  float64 `yaml:"watcher_debounce_seconds"`
}

// WorkerCount returns the fetch worker pool size, defaulting when unset.
func (s Sync) WorkerCount() int {
	if s.Workers <= 0 {
		return 16
	}
	return s.Workers
}
