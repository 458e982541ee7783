package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Playback PlaybackConfig `mapstructure:"playback"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path               string `mapstructure:"path"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections"`
	Verbose            bool   `mapstructure:"verbose"`
}

// RemoteConfig contains settings for the backend the agent syncs with
type RemoteConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Token         string        `mapstructure:"token"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// SyncConfig contains sync coordinator settings
type SyncConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	QueueSize     int           `mapstructure:"queue_size"`
	ClockInterval time.Duration `mapstructure:"clock_interval"`
}

// AuthConfig contains auth settings
type AuthConfig struct {
	AdminSecret string `mapstructure:"admin_secret"`
}

// PlaybackConfig contains playback persistence settings
type PlaybackConfig struct {
	SaveInterval time.Duration `mapstructure:"save_interval"`
}
