// Package config loads the catalog's settings from the environment.
//
// LOADING ORDER:
//  1. an optional .env file (github.com/joho/godotenv) fills in variables
//     that are NOT already set; real environment variables always win
//  2. each setting is read with a typed loader that falls back to a default
//
// Load does not validate. Commands that only touch the database (migrate,
// deactivate-user) have no use for a JWT secret, so only `serve` calls
// Validate before starting.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Defaults for every optional setting.
const (
	DefaultPort           = 8080
	DefaultDBPath         = "data/catalog.db"
	DefaultTokenTTL       = 4 * time.Hour
	DefaultBcryptCost     = 10
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultRateLimitRPS   = 5
	DefaultRateLimitBurst = 10

	// MinSecretLength matches what auth.NewTokenService accepts.
	MinSecretLength = 16
)

type Config struct {
	Env    string // APP_ENV, free-form ("development", "production", ...)
	Port   int
	DBPath string

	// Authentication
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	// Logging
	LogLevel  string // debug | info | warn | error
	LogFormat string // text | json

	// HTTP edge
	CORSOrigins        []string
	AuthRateLimitRPS   float64
	AuthRateLimitBurst int

	// GitHub sign-in is enabled only when a client id is configured.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Load reads envFile (if it exists) and then the process environment.
// A missing env file is not an error; a malformed one is.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment alone. Every
// unparseable value is reported, not just the first one.
func FromEnv() (*Config, error) {
	cfg := &Config{}

	loadEnvString(&cfg.Env, "APP_ENV", "development")
	loadEnvString(&cfg.DBPath, "DB_PATH", DefaultDBPath)
	loadEnvString(&cfg.JWTSecret, "JWT_SECRET", "")
	loadEnvString(&cfg.LogLevel, "LOG_LEVEL", DefaultLogLevel)
	loadEnvString(&cfg.LogFormat, "LOG_FORMAT", DefaultLogFormat)
	loadEnvStringSlice(&cfg.CORSOrigins, "CORS_ORIGINS", []string{"*"})
	loadEnvString(&cfg.GitHubClientID, "GITHUB_CLIENT_ID", "")
	loadEnvString(&cfg.GitHubClientSecret, "GITHUB_CLIENT_SECRET", "")

	err := errors.Join(
		loadEnvInt(&cfg.Port, "PORT", DefaultPort),
		loadEnvDuration(&cfg.TokenTTL, "TOKEN_TTL", DefaultTokenTTL),
		loadEnvInt(&cfg.BcryptCost, "BCRYPT_COST", DefaultBcryptCost),
		loadEnvFloat(&cfg.AuthRateLimitRPS, "AUTH_RATE_LIMIT_RPS", DefaultRateLimitRPS),
		loadEnvInt(&cfg.AuthRateLimitBurst, "AUTH_RATE_LIMIT_BURST", DefaultRateLimitBurst),
	)
	if err != nil {
		return nil, err
	}

	loadEnvString(&cfg.GitHubCallbackURL, "GITHUB_CALLBACK_URL",
		fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port))

	return cfg, nil
}

// Validate checks everything `serve` needs and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.DBPath == "" {
		problems = append(problems, "DB_PATH is required")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	} else if len(c.JWTSecret) < MinSecretLength {
		problems = append(problems, fmt.Sprintf("JWT_SECRET must be at least %d characters", MinSecretLength))
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		problems = append(problems, fmt.Sprintf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if c.AuthRateLimitRPS <= 0 {
		problems = append(problems, "AUTH_RATE_LIMIT_RPS must be positive")
	}
	if c.AuthRateLimitBurst < 1 {
		problems = append(problems, "AUTH_RATE_LIMIT_BURST must be at least 1")
	}
	if c.GitHubClientID != "" && c.GitHubClientSecret == "" {
		problems = append(problems, "GITHUB_CLIENT_SECRET is required when GITHUB_CLIENT_ID is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// GitHubEnabled reports whether the GitHub sign-in routes should be mounted.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// NewLogger builds the process logger: a text handler for development, a
// JSON handler when LOG_FORMAT=json. An unknown level falls back to info.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}

// Helper functions for type conversion. Each leaves the default in place
// when the variable is unset or empty.

func loadEnvString(target *string, key, defaultValue string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	*target = defaultValue
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %q", key, value)
		}
		*target = parsed
	}
	return nil
}

func loadEnvFloat(target *float64, key string, defaultValue float64) error {
	*target = defaultValue
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number value for %s: %q", key, value)
		}
		*target = parsed
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	*target = defaultValue
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %q", key, value)
		}
		*target = parsed
	}
	return nil
}

func loadEnvStringSlice(target *[]string, key string, defaultValue []string) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		*target = defaultValue
		return
	}
	*target = nil
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*target = append(*target, v)
		}
	}
}
