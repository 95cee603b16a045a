package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Plex    PlexConfig    `mapstructure:"plex"`
	Session SessionConfig `mapstructure:"session"`
	Sort    SortConfig    `mapstructure:"sort"`
	Filters FilterConfig  `mapstructure:"filters"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PlexConfig holds plex.tv and media server client settings
type PlexConfig struct {
	CloudURL         string        `mapstructure:"cloud_url"`
	ClientIdentifier string        `mapstructure:"client_identifier"`
	PageSize         int           `mapstructure:"page_size"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Concurrency      int           `mapstructure:"concurrency"`
}

// SessionConfig controls where the session is persisted. An empty path
// uses the XDG state directory.
type SessionConfig struct {
	Path string `mapstructure:"path"`
}

// SortConfig is the initial sort applied to item listings
type SortConfig struct {
	By   string `mapstructure:"by"`
	Desc bool   `mapstructure:"desc"`
}

// FilterConfig maps preset names to filter expressions
type FilterConfig map[string]string

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
