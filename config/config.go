package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PLEXSHELF_PLEX_PAGE_SIZE
const EnvPrefix = "PLEXSHELF"

// Load loads the configuration. A missing config file is not an error: every
// setting has a default.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".plexshelf"))
		}
		v.AddConfigPath("/etc/plexshelf/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Plex defaults
	v.SetDefault("plex.cloud_url", "https://plex.tv/api/v2")
	v.SetDefault("plex.client_identifier", "plex-api")
	v.SetDefault("plex.page_size", 200)
	v.SetDefault("plex.timeout", "30s")
	v.SetDefault("plex.concurrency", 1)

	v.SetDefault("session.path", "")

	// Sort defaults
	v.SetDefault("sort.by", "titleSort")
	v.SetDefault("sort.desc", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if _, err := url.ParseRequestURI(cfg.Plex.CloudURL); err != nil {
		return fmt.Errorf("plex.cloud_url must be an absolute URL: %w", err)
	}

	if cfg.Plex.ClientIdentifier == "" {
		return fmt.Errorf("plex.client_identifier is required")
	}

	if cfg.Plex.PageSize <= 0 {
		return fmt.Errorf("plex.page_size must be positive, got %d", cfg.Plex.PageSize)
	}

	if cfg.Plex.Timeout <= 0 {
		return fmt.Errorf("plex.timeout must be positive, got %s", cfg.Plex.Timeout)
	}

	if cfg.Plex.Concurrency < 1 {
		return fmt.Errorf("plex.concurrency must be at least 1, got %d", cfg.Plex.Concurrency)
	}

	if cfg.Sort.By == "" {
		return fmt.Errorf("sort.by is required")
	}

	for name, expression := range cfg.Filters {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("filters.%s has an empty expression", name)
		}
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// Preset returns the filter expression saved under name
func (c *Config) Preset(name string) (string, error) {
	expression, ok := c.Filters[name]
	if !ok {
		return "", fmt.Errorf("preset '%s' not found in config", name)
	}
	return expression, nil
}
