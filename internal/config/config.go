// Package config loads liftlog settings from struct-tag defaults, an
// optional YAML file and the environment, in that order of precedence.
package config

import (
	"net"
	"strconv"
	"time"
)

// Backend names accepted by StoreConfig.Backend.
const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
)

// Config holds all liftlog configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
}

// StoreConfig selects the vault and tunes the log store.
type StoreConfig struct {
	// Root is the vault directory for the fs backend.
	Root string `yaml:"root" env:"LIFTLOG_ROOT" default:"."`

	// Path is the log file path inside the vault.
	Path string `yaml:"path" env:"LIFTLOG_PATH" default:"theGYM/Log/workout_logs.csv"`

	// Backend is "fs" or "sqlite".
	Backend string `yaml:"backend" env:"LIFTLOG_BACKEND" default:"fs"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path" env:"LIFTLOG_SQLITE_PATH" default:"liftlog.db"`

	CacheTTL     time.Duration `yaml:"cache_ttl" env:"LIFTLOG_CACHE_TTL" default:"10s"`
	CacheMaxSize int           `yaml:"cache_max_size" env:"LIFTLOG_CACHE_MAX_SIZE" default:"5000"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level" env:"LOG_LEVEL" envAlt:"LIFTLOG_LOG_LEVEL" default:"info"`

	// Format is text or json.
	Format string `yaml:"format" env:"LOG_FORMAT" envAlt:"LIFTLOG_LOG_FORMAT" default:"text"`
}

// ServerConfig holds HTTP server settings for `liftlog serve`.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"LIFTLOG_HOST" default:"127.0.0.1"`
	Port            int           `yaml:"port" env:"LIFTLOG_PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"LIFTLOG_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"LIFTLOG_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"LIFTLOG_SHUTDOWN_TIMEOUT" default:"10s"`
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
