// Package config loads the application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StravaConfig holds the user's Strava API application settings.
type StravaConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthPort     int
	// GearID, when set, is assigned to every uploaded activity.
	GearID string
}

// Config holds application configuration
type Config struct {
	Strava       StravaConfig
	Skip         []string
	DatabasePath string
	RateLimit    time.Duration

	skipSet map[string]bool
}

// Load reads configuration from the given YAML file. Values can be
// overridden with IFIT_STRAVA_-prefixed environment variables, e.g.
// IFIT_STRAVA_STRAVA_CLIENT_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("IFIT_STRAVA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("strava.redirect_uri", "http://localhost:8000/authorised")
	v.SetDefault("strava.auth_port", 8000)
	v.SetDefault("database_path", "config/ifit-strava.db")
	v.SetDefault("rate_limit", "2s")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{
		Strava: StravaConfig{
			ClientID:     v.GetString("strava.client_id"),
			ClientSecret: v.GetString("strava.client_secret"),
			RedirectURI:  v.GetString("strava.redirect_uri"),
			AuthPort:     v.GetInt("strava.auth_port"),
			GearID:       v.GetString("strava.gear_id"),
		},
		Skip:         v.GetStringSlice("skip"),
		DatabasePath: v.GetString("database_path"),
		RateLimit:    v.GetDuration("rate_limit"),
	}

	if cfg.Strava.ClientID == "" || cfg.Strava.ClientSecret == "" {
		return nil, fmt.Errorf("strava.client_id and strava.client_secret are required")
	}

	// Ensure the database directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	cfg.skipSet = make(map[string]bool, len(cfg.Skip))
	for _, id := range cfg.Skip {
		cfg.skipSet[id] = true
	}

	return cfg, nil
}

// ShouldSkip reports whether a workout ID is on the skip list.
func (c *Config) ShouldSkip(workoutID string) bool {
	return c.skipSet[workoutID]
}
