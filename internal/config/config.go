// Package config loads application settings from an embedded default TOML
// document, an optional config file, an optional .env file, and the
// environment, in that order of increasing precedence.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed default.toml
var defaultConf []byte

var (
	// ErrMissingCredentials is returned when SPOTIFY_ID or SPOTIFY_SECRET is not set.
	ErrMissingCredentials = errors.New("missing SPOTIFY_ID or SPOTIFY_SECRET")

	// ErrMissingAPIKey is returned when LASTFM_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing LASTFM_API_KEY")

	// ErrMissingDatabaseURL is returned when no database location is configured.
	ErrMissingDatabaseURL = errors.New("missing DATABASE_URL")

	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Spotify  SpotifyConfig  `toml:"spotify"`
	LastFM   LastFMConfig   `toml:"lastfm"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Songs    SongsConfig    `toml:"songs"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Addr           string        `toml:"addr"`
	AllowedOrigins []string      `toml:"allowed_origins"`
	SessionTTL     time.Duration `toml:"session_ttl"`
	SecureCookies  bool          `toml:"secure_cookies"`
	// Timezone names the location used for calendar-day queries.
	Timezone string `toml:"timezone"`
}

type SpotifyConfig struct {
	ClientID     string        `toml:"client_id"`
	ClientSecret string        `toml:"client_secret"`
	RedirectURL  string        `toml:"redirect_url"`
	APIBaseURL   string        `toml:"api_base_url"`
	Timeout      time.Duration `toml:"timeout"`
}

type LastFMConfig struct {
	APIKey            string        `toml:"api_key"`
	BaseURL           string        `toml:"base_url"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
	Timeout           time.Duration `toml:"timeout"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string `toml:"driver"`
	URL    string `toml:"url"`
}

// RedisConfig selects the Redis session backend when Addr is set.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type SongsConfig struct {
	MaxCandidateAttempts int           `toml:"max_candidate_attempts"`
	CallTimeout          time.Duration `toml:"call_timeout"`
	HistoryTimeout       time.Duration `toml:"history_timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Default returns the configuration described by the embedded default.toml.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(defaultConf, &cfg); err != nil {
		panic(fmt.Sprintf("parsing embedded default config: %v", err))
	}
	return &cfg
}

// Load builds a validated Config. path may be empty, in which case only the
// defaults, .env and the environment are consulted.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read merges defaults, path, .env and the environment without validating.
// Commands that only touch the database use it with ValidateDatabase.
func Read(path string) (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalidConfig, path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("ADDR", c.Server.Addr)
	c.Server.AllowedOrigins = getEnvAsSlice("ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.Timezone = getEnv("TIMEZONE", c.Server.Timezone)

	c.Spotify.ClientID = getEnv("SPOTIFY_ID", c.Spotify.ClientID)
	c.Spotify.ClientSecret = getEnv("SPOTIFY_SECRET", c.Spotify.ClientSecret)
	c.Spotify.RedirectURL = getEnv("SPOTIFY_REDIRECT_URL", c.Spotify.RedirectURL)

	c.LastFM.APIKey = getEnv("LASTFM_API_KEY", c.LastFM.APIKey)

	c.Database.Driver = getEnv("DATABASE_DRIVER", c.Database.Driver)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)

	c.Songs.MaxCandidateAttempts = getEnvAsInt("MAX_CANDIDATE_ATTEMPTS", c.Songs.MaxCandidateAttempts)
	c.Songs.CallTimeout = getEnvAsDuration("CALL_TIMEOUT", c.Songs.CallTimeout)
	c.Songs.HistoryTimeout = getEnvAsDuration("HISTORY_TIMEOUT", c.Songs.HistoryTimeout)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
}

// Validate checks that every required setting is present and in range.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return ErrMissingCredentials
	}
	if c.LastFM.APIKey == "" {
		return ErrMissingAPIKey
	}
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.Songs.MaxCandidateAttempts < 1 {
		return fmt.Errorf("%w: max_candidate_attempts must be at least 1", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// ValidateDatabase checks only the database settings.
func (c *Config) ValidateDatabase() error {
	if c.Database.URL == "" {
		return ErrMissingDatabaseURL
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	return nil
}

// Location resolves Server.Timezone. Empty and "Local" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" || c.Server.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Server.Timezone, err)
	}
	return loc, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
