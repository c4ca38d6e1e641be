// Package config provides configuration loading from YAML files and the environment.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Jellyfin JellyfinConfig `yaml:"jellyfin"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Control  ControlConfig  `yaml:"control"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":3000"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// JellyfinConfig represents the remote media server connection.
// Fields may be empty at load time; handlers report missing values per request.
type JellyfinConfig struct {
	URL                string `yaml:"url" validate:"omitempty,url"`
	APIKey             string `yaml:"api_key"`
	UserID             string `yaml:"user_id"`
	PlaylistsLibraryID string `yaml:"playlists_library_id"`
	RequestTimeoutSec  int    `yaml:"request_timeout_sec" default:"15" validate:"gte=1,lte=120"`
	MaxRetries         int    `yaml:"max_retries" default:"3" validate:"gte=1,lte=10"`
}

// CatalogConfig represents listing proxy behavior.
// The max-age and cache size fields are pointers so an explicit 0, which
// disables the response cache, is kept instead of being defaulted.
type CatalogConfig struct {
	PlaylistMaxAgeSec  *int `yaml:"playlist_max_age_sec" default:"30" validate:"omitempty,gte=0,lte=3600"`
	PlaylistsMaxAgeSec *int `yaml:"playlists_max_age_sec" default:"60" validate:"omitempty,gte=0,lte=3600"`
	CacheSize          *int `yaml:"cache_size" default:"128" validate:"omitempty,gte=0"`
	DefaultLimit       int  `yaml:"default_limit" default:"100" validate:"gte=1"`
	MaxLimit           int  `yaml:"max_limit" default:"200" validate:"gte=1"`
}

// ControlConfig represents the player control API.
type ControlConfig struct {
	Token string `yaml:"token"`
}

// Load loads configuration from an optional YAML file.
// An empty path skips the file. Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	cfg.Jellyfin.URL = strings.TrimRight(strings.TrimSpace(cfg.Jellyfin.URL), "/")
	cfg.Jellyfin.PlaylistsLibraryID = strings.TrimSpace(cfg.Jellyfin.PlaylistsLibraryID)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
// The NUXT_* names are accepted for deployments migrated from the Nuxt front end.
func (c *Config) overrideFromEnv() {
	if v := firstEnv("JELLYFIN_URL", "NUXT_JELLYFIN_URL", "NUXT_API_PARTY_ENDPOINTS_JELLYFIN_URL"); v != "" {
		c.Jellyfin.URL = v
	}
	if v := firstEnv("JELLYFIN_API_KEY", "NUXT_JELLYFIN_API_KEY"); v != "" {
		c.Jellyfin.APIKey = v
	}
	if v := firstEnv("JELLYFIN_USER_ID", "NUXT_JELLYFIN_USER_ID", "NUXT_PUBLIC_JELLYFIN_USER_ID"); v != "" {
		c.Jellyfin.UserID = v
	}
	if v := firstEnv("PLAYLISTS_LIBRARY_ID", "NUXT_PLAYLISTS_LIBRARY_ID"); v != "" {
		c.Jellyfin.PlaylistsLibraryID = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CONTROL_TOKEN"); v != "" {
		c.Control.Token = v
	}
}

// firstEnv returns the first non-blank value among the given variables.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Catalog.DefaultLimit > c.Catalog.MaxLimit {
		return errors.Newf("catalog default_limit (%d) must not exceed max_limit (%d)",
			c.Catalog.DefaultLimit, c.Catalog.MaxLimit)
	}

	return nil
}

// Configured reports whether the server URL and API key are set.
func (j *JellyfinConfig) Configured() bool {
	return j.URL != "" && j.APIKey != ""
}

// HasUser reports whether a default user identity is set.
func (j *JellyfinConfig) HasUser() bool {
	return j.UserID != ""
}
